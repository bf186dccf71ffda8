package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jokefeed/internal/config"
	"jokefeed/pkg/logger"
)

func init() {
	logger.Init("error", io.Discard)
}

func TestFetch(t *testing.T) {
	var gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jokes":[
			{"id":"j1","setup_text":"Setup one","punchline_text":"Punch one"},
			{"id":"j2","setup_text":"Setup two","punchline_text":"Punch two","feed_index":7}
		]}`))
	}))
	defer server.Close()

	client := New(config.FeedConfig{URL: server.URL, Limit: 5, Timeout: 5 * time.Second})

	jokes, err := client.Fetch(context.Background(), "puns")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(jokes) != 2 {
		t.Fatalf("jokes = %d, want 2", len(jokes))
	}
	if jokes[0].ID != "j1" || jokes[1].ID != "j2" {
		t.Errorf("ids = %s, %s", jokes[0].ID, jokes[1].ID)
	}
	// Backends that omit feed_index get positional backfill; explicit
	// values are kept.
	if jokes[0].FeedIndex != 0 {
		t.Errorf("jokes[0].FeedIndex = %d, want 0", jokes[0].FeedIndex)
	}
	if jokes[1].FeedIndex != 7 {
		t.Errorf("jokes[1].FeedIndex = %d, want 7", jokes[1].FeedIndex)
	}

	if gotQuery != "category=puns&limit=5" {
		t.Errorf("query = %q, want category=puns&limit=5", gotQuery)
	}
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(config.FeedConfig{URL: server.URL, Limit: 5, Timeout: 5 * time.Second})

	if _, err := client.Fetch(context.Background(), ""); err == nil {
		t.Error("expected error on 502 response")
	}
}

func TestFetchUnconfigured(t *testing.T) {
	client := New(config.FeedConfig{Timeout: time.Second})

	if _, err := client.Fetch(context.Background(), ""); err == nil {
		t.Error("expected error with empty url")
	}
}
