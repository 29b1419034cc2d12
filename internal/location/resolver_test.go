package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractCoordinates(t *testing.T) {
	cases := []struct {
		name string
		link string
		lat  float64
		lon  float64
		ok   bool
	}{
		{"positive longitude", "https://www.google.com/maps/search/40.7128,74.0060?z=5", 40.7128, 74.0060, true},
		{"plus-encoded negative longitude", "https://www.google.com/maps/search/37.7749,+-122.4194", 37.7749, -122.4194, true},
		{"query suffix stripped", "https://maps.google.com/search/10.5,20.25?hl=en&z=3", 10.5, 20.25, true},
		{"no search segment", "https://example.com/no-search-here", 0, 0, false},
		{"no comma", "https://maps.google.com/search/37.7749", 0, 0, false},
		{"negative longitude without plus separator", "https://maps.google.com/search/40.7128,-74.0060", 0, 0, false},
		{"trailing plus leaves empty longitude", "https://maps.google.com/search/37.7749,-122.4194+?z=10", 0, 0, false},
		{"garbage latitude", "https://maps.google.com/search/abc,20.25", 0, 0, false},
		{"garbage longitude", "https://maps.google.com/search/10.5,xyz", 0, 0, false},
		{"empty input", "", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lat, lon, ok := ExtractCoordinates(tc.link)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if !tc.ok {
				return
			}
			if lat != tc.lat || lon != tc.lon {
				t.Fatalf("got (%v, %v), want (%v, %v)", lat, lon, tc.lat, tc.lon)
			}
		})
	}
}

func TestFormatCoordinates(t *testing.T) {
	if got := FormatCoordinates(37.7749, -122.4194); got != "37.7749, -122.4194" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveKeepsMapURL(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer final.Close()

	// A shortener-style hop: the final URL must contain "maps" to be kept,
	// which we arrange via a path component.
	target := final.URL + "/maps/place/somewhere"
	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}))
	defer short.Close()

	r := NewResolver(2*time.Second, "", nil)
	got, err := r.Resolve(context.Background(), short.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != target {
		t.Fatalf("got %q, want %q", got, target)
	}
}

func TestResolveFallsBackOnNonMapURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	r := NewResolver(2*time.Second, "", nil)
	got, err := r.Resolve(context.Background(), srv.URL+"/not-a-m-a-p-link")
	if err != nil {
		t.Fatalf("non-map link is not an error: %v", err)
	}
	if got != FallbackMapURL {
		t.Fatalf("got %q, want fallback", got)
	}
}

func TestResolveFallsBackOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	r := NewResolver(500*time.Millisecond, "", nil)
	got, err := r.Resolve(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected a resolution error")
	}
	if got != FallbackMapURL {
		t.Fatalf("got %q, want fallback even on error", got)
	}
}

func TestSessionRemembersLastPair(t *testing.T) {
	s := NewSession()
	if _, has := s.Coordinates(); has {
		t.Fatalf("fresh session must be empty")
	}
	coords, ok := s.Generate("https://maps.google.com/search/10.5,20.25")
	if !ok || coords != "10.5, 20.25" {
		t.Fatalf("got %q ok=%v", coords, ok)
	}
	// A failed parse leaves the previous value in place.
	if _, ok := s.Generate("https://example.com/nothing"); ok {
		t.Fatalf("expected parse failure")
	}
	got, has := s.Coordinates()
	if !has || got != "10.5, 20.25" {
		t.Fatalf("previous pair lost: %q has=%v", got, has)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	employee, driver := NewSession(), NewSession()
	employee.Generate("https://maps.google.com/search/1.5,2.5")
	if _, has := driver.Coordinates(); has {
		t.Fatalf("driver-side session must not see employee-side state")
	}
}
