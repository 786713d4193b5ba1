package graph

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/identity"
)

func TestBuild(t *testing.T) {
	similar := map[string][]artist.SimilarArtist{
		"sleep token": {
			{Key: "bad omens", Name: "Bad Omens", Match: 0.8},
			{Name: "Spiritbox", Match: 1.2},
		},
	}
	tours := []artist.TourSummary{
		{
			Key:                  "spiritbox",
			Status:               artist.OnTour,
			TourCoperformers:     []string{"loathe"},
			FestivalCoperformers: map[string]int{"knocked loose": 3, "ignored": 0},
		},
		{
			Key:              "loathe",
			TourCoperformers: []string{"spiritbox"},
		},
	}

	got := NewBuilder().Build(similar, tours)
	expected := []artist.Relationship{
		{Origin: "loathe", Target: "spiritbox", Type: artist.Tour, Weight: 1},
		{Origin: "sleep token", Target: "bad omens", Type: artist.Similarity, Weight: 0.8},
		{Origin: "sleep token", Target: "spiritbox", Type: artist.Similarity, Weight: 1},
		{Origin: "spiritbox", Target: "knocked loose", Type: artist.Festival, Weight: 3},
		{Origin: "spiritbox", Target: "loathe", Type: artist.Tour, Weight: 1},
	}

	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Build() =\n%+v\nexpected\n%+v", got, expected)
	}
}

func TestBuild_RestrictTo(t *testing.T) {
	similar := map[string][]artist.SimilarArtist{
		"sleep token": {
			{Key: "bad omens", Match: 0.8},
			{Key: "spiritbox", Match: 0.6},
		},
	}

	got := NewBuilder().RestrictTo(identity.NewSet("Sleep Token", "Spiritbox")).Build(similar, nil)
	if len(got) != 1 || got[0].Target != "spiritbox" {
		t.Errorf("expected only the spiritbox edge, got %+v", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	if got := NewBuilder().Build(nil, nil); len(got) != 0 {
		t.Errorf("expected no edges, got %+v", got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}

	buf.Reset()
	rels := []artist.Relationship{{Origin: "a", Target: "b", Type: artist.Festival, Weight: 2}}
	if err := WriteJSON(&buf, rels); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	for _, field := range []string{`"origin": "a"`, `"target": "b"`, `"type": "festival"`, `"weight": 2`} {
		if !strings.Contains(buf.String(), field) {
			t.Errorf("output missing %s: %s", field, buf.String())
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artist_relationships.json")
	rels := []artist.Relationship{
		{Origin: "a", Target: "b", Type: artist.Similarity, Weight: 0.5},
		{Origin: "a", Target: "c", Type: artist.Tour, Weight: 1},
		{Origin: "b", Target: "a", Type: artist.Tour, Weight: 1},
	}

	if err := WriteFile(path, rels); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(loaded, rels) {
		t.Errorf("ReadFile = %+v, expected %+v", loaded, rels)
	}

	if out := Outgoing(loaded, "a", artist.Tour); len(out) != 1 || out[0].Target != "c" {
		t.Errorf("Outgoing(a, tour) = %+v", out)
	}
	if out := Outgoing(loaded, "a", ""); len(out) != 2 {
		t.Errorf("Outgoing(a) returned %d edges, expected 2", len(out))
	}
}
