package kit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", 401, func(t *testing.T, err error) {
			if !errors.Is(err, ErrAuthExpired) {
				t.Fatalf("want ErrAuthExpired, got %v", err)
			}
		}},
		{"rate limited", 429, func(t *testing.T, err error) {
			if !errors.Is(err, ErrRateLimited) {
				t.Fatalf("want ErrRateLimited, got %v", err)
			}
		}},
		{"server error", 503, func(t *testing.T, err error) {
			var remoteErr *RemoteError
			if !errors.As(err, &remoteErr) {
				t.Fatalf("want RemoteError, got %v", err)
			}
			if remoteErr.StatusCode != 503 {
				t.Fatalf("status = %d, want 503", remoteErr.StatusCode)
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := NewClient(server.URL, "tok")
			_, err := client.FetchTags(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			tc.check(t, err)
		})
	}
}

func TestFetchTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(`{"tags":[{"id":42,"name":"Newsletter","total_subscriptions":7}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	tags, err := client.FetchTags(context.Background())
	if err != nil {
		t.Fatalf("fetch tags: %v", err)
	}
	if len(tags) != 1 || tags[0].ID != 42 || tags[0].Name != "Newsletter" || tags[0].TotalSubscriptions != 7 {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}

func TestFetchSubscribersPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("per_page") != "100" {
			t.Errorf("per_page = %q, want 100", q.Get("per_page"))
		}
		switch q.Get("page") {
		case "1":
			w.Write([]byte(`{"subscribers":[{"id":1,"email_address":"a@example.com","first_name":"Ann","state":"active"}],"pagination":{"has_next_page":true}}`))
		case "2":
			w.Write([]byte(`{"subscribers":[{"id":2,"email_address":"b@example.com","first_name":"Bob","state":"inactive"}],"pagination":{"has_next_page":false}}`))
		default:
			t.Errorf("unexpected page %q", q.Get("page"))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")

	page1, err := client.FetchSubscribers(context.Background(), 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if !page1.Pagination.HasNextPage || len(page1.Subscribers) != 1 || page1.Subscribers[0].State != "active" {
		t.Fatalf("unexpected page 1: %+v", page1)
	}

	page2, err := client.FetchSubscribers(context.Background(), 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if page2.Pagination.HasNextPage || page2.Subscribers[0].EmailAddress != "b@example.com" {
		t.Fatalf("unexpected page 2: %+v", page2)
	}
}

func TestFetchSubscriberTagsSwallowsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	tags := client.FetchSubscriberTags(context.Background(), 99)
	if len(tags) != 0 {
		t.Fatalf("want empty tags on failure, got %+v", tags)
	}
}

func TestFetchAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"account":{"id":777,"name":"Acme","primary_email_address":"owner@acme.test"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok")
	account, err := client.FetchAccount(context.Background())
	if err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	if account.ID != 777 || account.PrimaryEmailAddress != "owner@acme.test" {
		t.Fatalf("unexpected account: %+v", account)
	}
}
