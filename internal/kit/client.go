package kit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the Kit v4 API root.
const DefaultBaseURL = "https://api.kit.com/v4"

// SubscribersPerPage is Kit's fixed page size for subscriber listings.
const SubscribersPerPage = 100

// Client talks to the Kit API on behalf of one account.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Kit API client. baseURL may be empty to use the
// production endpoint.
func NewClient(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Tag is a tag as reported by Kit.
type Tag struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	TotalSubscriptions int    `json:"total_subscriptions"`
}

// Sequence is a sequence as reported by Kit.
type Sequence struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	TotalSubscriptions int    `json:"total_subscriptions"`
}

// Subscriber is a subscriber as reported by Kit.
type Subscriber struct {
	ID           int64  `json:"id"`
	EmailAddress string `json:"email_address"`
	FirstName    string `json:"first_name"`
	State        string `json:"state"`
}

// SubscribersPage is one page of the subscriber listing.
type SubscribersPage struct {
	Subscribers []Subscriber `json:"subscribers"`
	Pagination  struct {
		HasNextPage bool `json:"has_next_page"`
	} `json:"pagination"`
}

// Account is the authenticated account as reported by Kit.
type Account struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	PrimaryEmailAddress string `json:"primary_email_address"`
}

// FetchAccount returns the authenticated Kit account.
func (c *Client) FetchAccount(ctx context.Context) (*Account, error) {
	var out struct {
		Account Account `json:"account"`
	}
	if err := c.get(ctx, "/account", nil, &out); err != nil {
		return nil, err
	}
	return &out.Account, nil
}

// FetchTags returns all tags for the account. Not paginated.
func (c *Client) FetchTags(ctx context.Context) ([]Tag, error) {
	var out struct {
		Tags []Tag `json:"tags"`
	}
	if err := c.get(ctx, "/tags", nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// FetchSequences returns all sequences for the account. Not paginated.
func (c *Client) FetchSequences(ctx context.Context) ([]Sequence, error) {
	var out struct {
		Sequences []Sequence `json:"sequences"`
	}
	if err := c.get(ctx, "/sequences", nil, &out); err != nil {
		return nil, err
	}
	return out.Sequences, nil
}

// FetchSubscribers returns one page of subscribers, 100 per page.
func (c *Client) FetchSubscribers(ctx context.Context, page int) (*SubscribersPage, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(SubscribersPerPage)},
	}
	var out SubscribersPage
	if err := c.get(ctx, "/subscribers", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSubscriberTags returns the tags a subscriber currently carries. Any
// failure here is downgraded to an empty list: a subscriber without readable
// tags must not abort a sync of thousands of others.
func (c *Client) FetchSubscriberTags(ctx context.Context, subscriberID int64) []Tag {
	var out struct {
		Tags []Tag `json:"tags"`
	}
	path := fmt.Sprintf("/subscribers/%d/tags", subscriberID)
	if err := c.get(ctx, path, nil, &out); err != nil {
		log.Printf("no tags for subscriber %d: %v", subscriberID, err)
		return nil
	}
	return out.Tags
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kit: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("kit: decode %s: %w", path, err)
	}
	return nil
}
