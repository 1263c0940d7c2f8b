// Package calendar aggregates upcoming-release events from the catalog,
// the automation services, and the local request store into one view.
package calendar

import (
	"fmt"
	"time"

	"github.com/leleasley/lemedia/internal/media"
)

// Source identifies which fetch produced an event.
type Source string

const (
	SourceCatalog  Source = "catalog"
	SourceSeries   Source = "series_automation"
	SourceMovies   Source = "movie_automation"
	SourcePremiere Source = "premiere"
	SourceRequest  Source = "request"
)

// Event is one calendar entry. The ID is stable per source namespace so
// deduplication can reason about identity without re-deriving it.
type Event struct {
	ID           string     `json:"id"`
	Source       Source     `json:"source"`
	Type         media.Type `json:"media_type"`
	Title        string     `json:"title"`
	Date         time.Time  `json:"date"`
	Overview     string     `json:"overview,omitempty"`
	PosterPath   string     `json:"poster_path,omitempty"`
	BackdropPath string     `json:"backdrop_path,omitempty"`
	CatalogID    int64      `json:"catalog_id,omitempty"`
	LegacyID     int64      `json:"legacy_id,omitempty"`
	Season       int        `json:"season,omitempty"`
	Episode      int        `json:"episode,omitempty"`
	Status       string     `json:"status,omitempty"`
	Available    *bool      `json:"available,omitempty"`
}

func movieEventID(catalogID int64) string {
	return fmt.Sprintf("movie-%d", catalogID)
}

func episodeEventID(episodeID int64) string {
	return fmt.Sprintf("episode-%d", episodeID)
}

func premiereEventID(catalogID int64, season int) string {
	return fmt.Sprintf("premiere-%d-s%d", catalogID, season)
}

func requestEventID(requestID string) string {
	return "request-" + requestID
}
