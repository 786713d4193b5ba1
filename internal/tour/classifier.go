// Package tour derives touring status and co-performers from raw events.
package tour

import (
	"strings"
	"time"

	"github.com/jfmyers9/riffnet/internal/artist"
	"github.com/jfmyers9/riffnet/internal/identity"
)

const (
	// DefaultOnTourWindow is how far ahead a tour date still counts as on tour
	DefaultOnTourWindow = 30 * 24 * time.Hour

	// DefaultFestivalThreshold is the attraction count above which an event
	// is treated as a festival
	DefaultFestivalThreshold = 5

	festivalSubType = "Festival"
	dateLayout      = "2006-01-02"
)

// Classifier turns an artist's events into a TourSummary
type Classifier struct {
	Now               func() time.Time
	OnTourWindow      time.Duration
	FestivalThreshold int
}

// NewClassifier returns a classifier with the default thresholds
func NewClassifier(now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{
		Now:               now,
		OnTourWindow:      DefaultOnTourWindow,
		FestivalThreshold: DefaultFestivalThreshold,
	}
}

// Group is a set of events that share a normalized name
type Group struct {
	Name   string
	Events []artist.Event
}

// NormalizeName lower-cases an event name and removes all punctuation
// and symbols
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if identity.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// GroupEvents groups events by normalized name, preserving the order in
// which each group first appears
func GroupEvents(events []artist.Event) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, e := range events {
		name := NormalizeName(e.Name)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	return groups
}

// IsFestival reports whether an event looks like a festival: it carries a
// "Festival" sub-classification or lists more than threshold attractions.
// The attraction count is the provider's raw count when it is known.
func IsFestival(e artist.Event, threshold int) bool {
	for _, c := range e.Classifications {
		if strings.EqualFold(c.SubType, festivalSubType) {
			return true
		}
	}
	n := e.AttractionCount
	if n == 0 {
		n = len(e.Attractions)
	}
	return n > threshold
}

// Classify summarizes an artist's events. When coperformers is false the
// co-performer sets are left empty and groups are not checked for the
// artist's presence.
func (c *Classifier) Classify(name string, events []artist.Event, coperformers bool) artist.TourSummary {
	self := identity.Key(name)
	summary := artist.TourSummary{
		Key:    self,
		Status: artist.NotTouring,
	}

	tourSet := make(identity.Set)
	festivals := make(map[string]int)
	today := truncateDay(c.Now())
	var tourDate time.Time

	for _, g := range GroupEvents(events) {
		first := g.Events[0]
		festival := IsFestival(first, c.FestivalThreshold)

		if coperformers {
			performers := make(identity.Set, len(first.Attractions))
			for _, a := range first.Attractions {
				performers.Add(a.Name)
			}
			if _, ok := performers[self]; !ok {
				continue
			}
			delete(performers, self)

			for k := range performers {
				if festival {
					festivals[k]++
				} else {
					tourSet[k] = struct{}{}
				}
			}
		}

		if festival {
			continue
		}
		d, ok := parseDate(first.StartDate)
		if !ok {
			continue
		}
		if tourDate.IsZero() || d.Before(tourDate) {
			tourDate = d
		}
	}

	if coperformers {
		if len(tourSet) > 0 {
			summary.TourCoperformers = tourSet.Sorted()
		}
		if len(festivals) > 0 {
			summary.FestivalCoperformers = festivals
		}
	}

	if !tourDate.IsZero() {
		summary.TourDate = tourDate.Format(dateLayout)
		summary.Status = c.status(today, tourDate)
	}
	return summary
}

// status maps a tour date to a status at day granularity. A date before
// today is reported but does not count as touring.
func (c *Classifier) status(today, date time.Time) artist.TourStatus {
	if date.Before(today) {
		return artist.NotTouring
	}
	window := c.OnTourWindow
	if window <= 0 {
		window = DefaultOnTourWindow
	}
	threshold := today.AddDate(0, 0, int(window/(24*time.Hour)))
	if date.Before(threshold) {
		return artist.OnTour
	}
	return artist.UpcomingTour
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
