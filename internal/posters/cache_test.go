package posters

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestFetchStoresAndRemoveClears(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}))
	defer srv.Close()

	cache := NewCache(t.TempDir())
	if errFetch := cache.Fetch(2026, "anora", srv.URL); errFetch != nil {
		t.Fatalf("fetch: %v", errFetch)
	}
	if !cache.Exists(2026, "anora") {
		t.Fatal("cached file missing after fetch")
	}
	body, errRead := os.ReadFile(cache.Path(2026, "anora"))
	if errRead != nil || len(body) != 4 {
		t.Fatalf("cache body = %v, %v", body, errRead)
	}

	cache.Remove(2026, "anora")
	if cache.Exists(2026, "anora") {
		t.Fatal("cached file survived remove")
	}
	// Removing again is harmless.
	cache.Remove(2026, "anora")
}

func TestPathRejectsTraversalFilmIDs(t *testing.T) {
	cache := NewCache(t.TempDir())
	for _, id := range []string{"", ".", "..", "../../secret", "a/b", "sub/../escape"} {
		if ValidFilmID(id) {
			t.Errorf("ValidFilmID(%q) = true", id)
		}
		if path := cache.Path(2026, id); path != "" {
			t.Errorf("Path(%q) = %q, want empty", id, path)
		}
		if cache.Exists(2026, id) {
			t.Errorf("Exists(%q) = true", id)
		}
		if errFetch := cache.Fetch(2026, id, "http://127.0.0.1:1/poster.jpg"); errFetch == nil {
			t.Errorf("Fetch(%q) accepted an unusable film id", id)
		}
	}
	if !ValidFilmID("anora") {
		t.Error("ValidFilmID rejected a plain film id")
	}
}

func TestFetchFailureEvictsStaleEntry(t *testing.T) {
	cache := NewCache(t.TempDir())

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("old poster"))
	}))
	if errFetch := cache.Fetch(2026, "conclave", ok.URL); errFetch != nil {
		t.Fatalf("seed fetch: %v", errFetch)
	}
	ok.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()

	if errFetch := cache.Fetch(2026, "conclave", bad.URL); errFetch == nil {
		t.Fatal("fetch of failing URL should error")
	}
	if cache.Exists(2026, "conclave") {
		t.Fatal("stale cache entry survived failed refresh")
	}
}
