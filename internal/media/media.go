// Package media holds the identity types shared by every subsystem:
// what a title is (movie or series) and how it is identified across the
// catalog, the legacy TV database, and the media server.
package media

import "time"

// Type is the media kind a request or lookup concerns.
type Type string

const (
	TypeMovie Type = "movie"
	TypeTV    Type = "tv"
)

// Valid reports whether t is a known media type.
func (t Type) Valid() bool {
	return t == TypeMovie || t == TypeTV
}

// SeriesType distinguishes regularly-numbered series from daily ones
// (talk shows and the like), whose season/episode numbering is not
// reliable across metadata sources.
type SeriesType string

const (
	SeriesStandard SeriesType = "standard"
	SeriesDaily    SeriesType = "daily"
)

// Subject is an abstract movie or series. CatalogID is the primary key
// for admission control; LegacyID is the secondary per-series identifier
// required by the series automation service (0 when unknown). Immutable
// once a request references it.
type Subject struct {
	CatalogID int64
	LegacyID  int64
	Type      Type
	Title     string
}

// EpisodeRef addresses one episode. Season/episode numbers of 0 are
// invalid and force air-date matching; this is policy, not an edge case.
type EpisodeRef struct {
	Season  int
	Episode int
	AirDate time.Time
}

// HasValidNumbers reports whether both season and episode numbers are
// usable for numeric matching.
func (r EpisodeRef) HasValidNumbers() bool {
	return r.Season > 0 && r.Episode > 0
}

// DateRange is an inclusive [From, To] window used by calendar and
// discovery queries.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range, comparing by
// calendar day.
func (r DateRange) Contains(t time.Time) bool {
	day := t.Truncate(24 * time.Hour)
	return !day.Before(r.From.Truncate(24*time.Hour)) && !day.After(r.To.Truncate(24*time.Hour))
}
