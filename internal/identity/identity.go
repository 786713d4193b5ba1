// Package identity canonicalizes artist names into join keys and builds
// the artist universe a run works over.
package identity

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jfmyers9/riffnet/internal/artist"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDenylist holds festival brands that event providers list as
// attractions.
var DefaultDenylist = []string{
	"aftershock",
	"louder than life",
	"rock fest",
	"rockville",
	"welcome to rockville",
	"lollapalooza",
	"sonic temple",
	"mayhem festival",
	"coachella",
	"bonnaroo",
}

var lower = cases.Lower(language.Und)

// Key returns the canonical join key for an artist name: lower-cased,
// inner whitespace collapsed, surrounding whitespace, punctuation and
// symbols removed. Every stage derives keys through this function.
func Key(name string) string {
	s := strings.Join(strings.Fields(lower.String(name)), " ")
	s = strings.TrimFunc(s, func(r rune) bool {
		return IsPunct(r) || unicode.IsSpace(r)
	})
	return s
}

// IsPunct reports whether r is punctuation in the ASCII sense, which
// includes symbols such as $ + < = > ^ ` | and ~
func IsPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Set is a set of canonical keys
type Set map[string]struct{}

// NewSet canonicalizes names into a set, skipping names with empty keys
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add canonicalizes name and inserts it
func (s Set) Add(name string) {
	if k := Key(name); k != "" {
		s[k] = struct{}{}
	}
}

// Has reports whether name's key is present
func (s Set) Has(name string) bool {
	_, ok := s[Key(name)]
	return ok
}

// Sorted returns the keys in lexical order
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Universe is the set of artists a run knows about
type Universe struct {
	All         Set
	Playlist    Set
	NonPlaylist Set
}

// Resolve builds the universe from the playlist artists, their similarity
// neighbours, and their tour and festival co-performers. Denylisted keys
// never enter the universe, even when they appear in the playlist.
func Resolve(playlist []string, similar map[string][]artist.SimilarArtist, tours []artist.TourSummary, denylist []string) Universe {
	deny := NewSet(denylist...)

	u := Universe{
		All:         make(Set),
		Playlist:    make(Set),
		NonPlaylist: make(Set),
	}
	add := func(name string) {
		if k := Key(name); k != "" {
			if _, blocked := deny[k]; !blocked {
				u.All[k] = struct{}{}
			}
		}
	}

	for _, name := range playlist {
		add(name)
		if k := Key(name); k != "" {
			if _, blocked := deny[k]; !blocked {
				u.Playlist[k] = struct{}{}
			}
		}
	}
	for _, list := range similar {
		for _, s := range list {
			add(s.Name)
		}
	}
	for _, t := range tours {
		for _, name := range t.TourCoperformers {
			add(name)
		}
		for name := range t.FestivalCoperformers {
			add(name)
		}
	}

	for k := range u.All {
		if _, ok := u.Playlist[k]; !ok {
			u.NonPlaylist[k] = struct{}{}
		}
	}
	return u
}
