// Package graph builds the weighted artist relationship graph.
package graph

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/identity"
)

// TourWeight is the weight of every tour edge
const TourWeight = 1.0

// Builder assembles relationships from similarity lists and tour summaries
type Builder struct {
	restrict identity.Set
}

// NewBuilder returns a builder that keeps every edge
func NewBuilder() *Builder {
	return &Builder{}
}

// RestrictTo drops edges whose origin or target is not in keys
func (b *Builder) RestrictTo(keys identity.Set) *Builder {
	b.restrict = keys
	return b
}

// Build emits one similarity edge per similarity entry, one tour edge per
// tour co-performer and one festival edge per festival co-performer.
// Edges are directed from the artist that reported them and are not
// deduplicated against their reverse. The result is sorted by origin,
// type and target.
func (b *Builder) Build(similar map[string][]artist.SimilarArtist, tours []artist.TourSummary) []artist.Relationship {
	var rels []artist.Relationship
	add := func(origin, target string, typ artist.RelationType, weight float64) {
		if origin == "" || target == "" {
			return
		}
		if b.restrict != nil {
			if _, ok := b.restrict[origin]; !ok {
				return
			}
			if _, ok := b.restrict[target]; !ok {
				return
			}
		}
		rels = append(rels, artist.Relationship{
			Origin: origin,
			Target: target,
			Type:   typ,
			Weight: weight,
		})
	}

	for origin, list := range similar {
		for _, s := range list {
			target := s.Key
			if target == "" {
				target = identity.Key(s.Name)
			}
			add(identity.Key(origin), target, artist.Similarity, clamp(s.Match))
		}
	}

	for _, t := range tours {
		for _, co := range t.TourCoperformers {
			add(t.Key, identity.Key(co), artist.Tour, TourWeight)
		}
		for co, n := range t.FestivalCoperformers {
			if n > 0 {
				add(t.Key, identity.Key(co), artist.Festival, float64(n))
			}
		}
	}

	sort.Slice(rels, func(i, j int) bool {
		x, y := rels[i], rels[j]
		if x.Origin != y.Origin {
			return x.Origin < y.Origin
		}
		if x.Type != y.Type {
			return x.Type < y.Type
		}
		return x.Target < y.Target
	})
	return rels
}

func clamp(w float64) float64 {
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}

// WriteJSON writes relationships as an indented JSON array
func WriteJSON(w io.Writer, rels []artist.Relationship) error {
	if rels == nil {
		rels = []artist.Relationship{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rels); err != nil {
		return fmt.Errorf("failed to encode relationships: %w", err)
	}
	return nil
}

// WriteFile writes relationships to path
func WriteFile(path string, rels []artist.Relationship) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create relationships file: %w", err)
	}
	if err := WriteJSON(f, rels); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads relationships written by WriteFile
func ReadFile(path string) ([]artist.Relationship, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read relationships file: %w", err)
	}
	var rels []artist.Relationship
	if err := json.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse relationships file: %w", err)
	}
	return rels, nil
}

// Outgoing returns the edges leaving key, optionally limited to one type
func Outgoing(rels []artist.Relationship, key string, typ artist.RelationType) []artist.Relationship {
	var out []artist.Relationship
	for _, r := range rels {
		if r.Origin != key {
			continue
		}
		if typ != "" && r.Type != typ {
			continue
		}
		out = append(out, r)
	}
	return out
}
