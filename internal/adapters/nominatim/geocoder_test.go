package nominatim_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yash1732/gigguard/internal/adapters/nominatim"
	"github.com/yash1732/gigguard/internal/core/domain"
)

func TestReverse_DisplayName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "28.6139" || q.Get("lon") != "77.209" || q.Get("format") != "json" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "GigGuard" {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"place_id": 1, "display_name": "Connaught Place, New Delhi, India"}`))
	}))
	defer srv.Close()

	g := nominatim.New(http.DefaultClient, nominatim.Config{URL: srv.URL + "/", UserAgent: "GigGuard", Timeout: time.Second})
	got, err := g.Reverse(context.Background(), domain.GeoPoint{Lat: 28.6139, Lon: 77.2090})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Connaught Place, New Delhi, India" {
		t.Errorf("unexpected address %q", got)
	}
}

func TestReverse_Failures(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
		"html":   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html></html>")) },
		"empty":  func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"error": "Unable to geocode"}`)) },
		"slow": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			g := nominatim.New(http.DefaultClient, nominatim.Config{URL: srv.URL, UserAgent: "GigGuard", Timeout: 200 * time.Millisecond})
			if _, err := g.Reverse(context.Background(), domain.GeoPoint{Lat: 1, Lon: 2}); err == nil {
				t.Error("expected error")
			}
		})
	}
}
