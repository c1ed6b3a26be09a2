package go4schools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/famorg/internal/apperr"
)

func TestScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrape" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req scrapeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "kid@school.org" || req.Password != "pw" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"items": [{"subject": "Maths", "title": "Sheet", "due": "05/06/2024", "description": ""}]}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL, time.Second).Scrape(context.Background(), "kid@school.org", "pw")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(items) != 1 || items[0].Subject != "Maths" || items[0].Due != "05/06/2024" {
		t.Errorf("items = %+v", items)
	}
}

func TestScrapeLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"items": [], "error": "Login failed - check your email and password"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Scrape(context.Background(), "a", "b")
	if err == nil || err.Error() != "Login failed - check your email and password" {
		t.Errorf("err = %v", err)
	}
}

func TestScrapeUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Scrape(context.Background(), "a", "b")
	if apperr.KindOf(err) != apperr.KindUnavailable {
		t.Errorf("err = %v, want unavailable", err)
	}
}

func TestScrapeNotConfigured(t *testing.T) {
	_, err := NewClient("", 0).Scrape(context.Background(), "a", "b")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
