package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestCatalogRoundTrip(t *testing.T) {
	bpm := 128.4
	c := New()
	c.Set("b.mp3", Record{
		ID:       "Artist - Song",
		Title:    "Song",
		Artist:   "Artist",
		Duration: "03:20",
		URL:      "music/Artist - Song.mp3",
		Image:    NoCoverImage,
		BPM:      &bpm,
	})
	c.Set("a.mp4", Record{
		ID:    "clip",
		Title: "clip",
		URL:   "videos/clip.mp4",
		Metadata: &VideoMeta{
			Title:    "clip",
			Image:    "videos/clip.jpg",
			Duration: NoDuration,
		},
	})

	path := filepath.Join(t.TempDir(), "audioMetadata.json")
	if err := c.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(loaded.Keys(), c.Keys()) {
		t.Errorf("key order not preserved: %v != %v", loaded.Keys(), c.Keys())
	}
	for _, key := range c.Keys() {
		want, _ := c.Get(key)
		got, _ := loaded.Get(key)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("entry %q = %+v, want %+v", key, got, want)
		}
	}

	// Save of the reloaded catalog must reproduce the same bytes.
	again := filepath.Join(t.TempDir(), "again.json")
	if err := loaded.Save(again); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	first, _ := os.ReadFile(path)
	second, _ := os.ReadFile(again)
	if string(first) != string(second) {
		t.Error("round-trip changed the serialized catalog")
	}
}

func TestCatalogJSONIndentation(t *testing.T) {
	c := New()
	c.Set("a.mp3", Record{ID: "Artist - Song", URL: "music/Artist - Song.mp3"})

	data, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"a.mp3\": {") {
		t.Errorf("expected 2-space indented object, got:\n%s", data)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load of missing file errored: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty catalog, got %d entries", c.Len())
	}
}

func TestParseEmptyAndInvalid(t *testing.T) {
	c, err := Parse(nil)
	if err != nil || c.Len() != 0 {
		t.Errorf("Parse(nil) = (%v, %v), want empty catalog", c, err)
	}

	if _, err := Parse([]byte("[1,2]")); err == nil {
		t.Error("expected error for non-object JSON")
	}
	if _, err := Parse([]byte("{invalid")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestParsePreservesUnknownIDEntries(t *testing.T) {
	data := []byte(`{
  "legacy.mp3": {
    "title": "Old Track",
    "url": "music/old.mp3"
  }
}`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	rec, ok := c.Get("legacy.mp3")
	if !ok {
		t.Fatal("legacy entry missing")
	}
	if rec.ID != "" || rec.Title != "Old Track" {
		t.Errorf("legacy entry = %+v", rec)
	}
}

func TestSetReplacesInPlace(t *testing.T) {
	c := New()
	c.Set("a", Record{ID: "one"})
	c.Set("b", Record{ID: "two"})
	c.Set("a", Record{ID: "one-updated"})

	if !reflect.DeepEqual(c.Keys(), []string{"a", "b"}) {
		t.Errorf("keys = %v, want [a b]", c.Keys())
	}
	rec, _ := c.Get("a")
	if rec.ID != "one-updated" {
		t.Errorf("value not replaced: %+v", rec)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00"},
		{59.9, "00:59"},
		{60, "01:00"},
		{200.7, "03:20"},
		{3599, "59:59"},
		{3661, "61:01"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
