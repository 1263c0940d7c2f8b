// Package catalog is a client for the public metadata catalog: upcoming
// release discovery, title details, and the external-ID bridge to the
// legacy TV database.
package catalog

import (
	"strconv"
	"time"

	"github.com/leleasley/lemedia/internal/media"
)

// Release is one discovery result: a movie or series releasing inside
// the queried window. ReleaseDate is the catalog's "2006-01-02" string;
// Date parses it.
type Release struct {
	ID           int64
	Kind         media.Type
	Title        string
	Overview     string
	ReleaseDate  string
	PosterPath   string
	BackdropPath string
	VoteAverage  float64
}

// Date returns the release date, zero when the catalog omitted it.
func (r Release) Date() time.Time {
	return parseDate(r.ReleaseDate)
}

// Details is full metadata for one title. Seasons is populated for
// series only.
type Details struct {
	ID           int64
	Kind         media.Type
	Title        string
	Overview     string
	ReleaseDate  string
	PosterPath   string
	BackdropPath string
	Runtime      int
	Status       string
	Genres       []Genre
	Seasons      []Season
}

// Year extracts the year from ReleaseDate.
func (d *Details) Year() int {
	if len(d.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(d.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// PosterURL returns the full poster image URL.
// Size can be: w92, w154, w185, w342, w500, w780, original
func (d *Details) PosterURL(size string) string {
	if d.PosterPath == "" {
		return ""
	}
	return imageBaseURL + size + d.PosterPath
}

// Genre classifies a title.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Season is one season of a series as the catalog knows it.
type Season struct {
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
	Name         string `json:"name"`
}

// PremiereDate returns the season's first air date, zero when unknown.
func (s Season) PremiereDate() time.Time {
	return parseDate(s.AirDate)
}

// ExternalIDs bridges a catalog title to the other identity spaces.
// LegacyID is 0 when the catalog has no mapping for it.
type ExternalIDs struct {
	IMDBID   string `json:"imdb_id"`
	LegacyID int64  `json:"tvdb_id"`
}

const imageBaseURL = "https://image.tmdb.org/t/p/"

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// releaseResult is the wire shape of one discovery row. Movie and
// series rows name their title and date fields differently; toRelease
// folds both into one type.
type releaseResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
}

func (r releaseResult) toRelease(kind media.Type) Release {
	rel := Release{
		ID:           r.ID,
		Kind:         kind,
		Title:        r.Title,
		Overview:     r.Overview,
		ReleaseDate:  r.ReleaseDate,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		VoteAverage:  r.VoteAverage,
	}
	if kind == media.TypeTV {
		rel.Title = r.Name
		rel.ReleaseDate = r.FirstAirDate
	}
	return rel
}

// detailsResult is the wire shape of a details response.
type detailsResult struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Name         string   `json:"name"`
	ReleaseDate  string   `json:"release_date"`
	FirstAirDate string   `json:"first_air_date"`
	Overview     string   `json:"overview"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	Runtime      int      `json:"runtime"`
	Status       string   `json:"status"`
	Genres       []Genre  `json:"genres"`
	Seasons      []Season `json:"seasons"`
}

func (d detailsResult) toDetails(kind media.Type) *Details {
	det := &Details{
		ID:           d.ID,
		Kind:         kind,
		Title:        d.Title,
		Overview:     d.Overview,
		ReleaseDate:  d.ReleaseDate,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		Runtime:      d.Runtime,
		Status:       d.Status,
		Genres:       d.Genres,
		Seasons:      d.Seasons,
	}
	if kind == media.TypeTV {
		det.Title = d.Name
		det.ReleaseDate = d.FirstAirDate
	}
	return det
}
