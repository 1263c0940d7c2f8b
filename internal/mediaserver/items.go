package mediaserver

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Item types as reported by the media server.
type ItemType string

const (
	ItemMovie   ItemType = "Movie"
	ItemSeries  ItemType = "Series"
	ItemSeason  ItemType = "Season"
	ItemEpisode ItemType = "Episode"
)

// Provider ID keys used in LibraryItem.ProviderIDs.
const (
	ProviderCatalog = "Tmdb"
	ProviderLegacy  = "Tvdb"
	ProviderIMDB    = "Imdb"
)

const locationVirtual = "Virtual"

// MediaSource is one physical file backing an item.
type MediaSource struct {
	ID   string `json:"Id"`
	Path string `json:"Path"`
}

// LibraryItem is a node in the media server's catalog: a movie, a series
// or season container, or an episode.
type LibraryItem struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              ItemType          `json:"Type"`
	LocationType      string            `json:"LocationType"`
	Path              string            `json:"Path"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
	MediaSources      []MediaSource     `json:"MediaSources"`
	IndexNumber       int               `json:"IndexNumber"`
	ParentIndexNumber int               `json:"ParentIndexNumber"`
	PremiereDate      time.Time         `json:"PremiereDate"`
	DateCreated       time.Time         `json:"DateCreated"`
	SeriesID          string            `json:"SeriesId"`
	ChildCount        int               `json:"ChildCount"`
	ProductionYear    int               `json:"ProductionYear"`
}

// ProviderID returns the item's external ID for the named provider.
// Key casing varies between server versions, so the lookup is
// case-insensitive.
func (it *LibraryItem) ProviderID(name string) string {
	for k, v := range it.ProviderIDs {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// IsAvailable reports whether the item is actually playable: not a
// virtual placeholder, backed by at least one non-empty physical path
// (directly or via a media source), and not a bare container with no
// episodes. Metadata-only placeholders must never count as present.
func (it *LibraryItem) IsAvailable() bool {
	if strings.EqualFold(it.LocationType, locationVirtual) {
		return false
	}
	if (it.Type == ItemSeries || it.Type == ItemSeason) && it.ChildCount == 0 {
		return false
	}
	if it.Path != "" {
		return true
	}
	for _, src := range it.MediaSources {
		if src.Path != "" {
			return true
		}
	}
	return false
}

// Filter narrows a library query. Zero values are omitted from the
// request.
type Filter struct {
	// ProviderName/ProviderValue match items carrying the given
	// external provider ID (e.g. Tmdb / "603").
	ProviderName  string
	ProviderValue string
	IDs           []string
	IncludeTypes  []ItemType
	SearchTerm    string
	Recursive     bool
	Limit         int
}

// itemFields is requested on every query so availability can be decided
// without follow-up calls.
const itemFields = "ProviderIds,Path,MediaSources,DateCreated,PremiereDate,ChildCount,ProductionYear"

func (f Filter) values() url.Values {
	v := url.Values{}
	v.Set("fields", itemFields)
	if f.Recursive {
		v.Set("Recursive", "true")
	}
	if len(f.IncludeTypes) > 0 {
		names := make([]string, len(f.IncludeTypes))
		for i, t := range f.IncludeTypes {
			names[i] = string(t)
		}
		v.Set("IncludeItemTypes", strings.Join(names, ","))
	}
	if f.ProviderName != "" && f.ProviderValue != "" {
		v.Set("AnyProviderIdEquals", strings.ToLower(f.ProviderName)+"."+f.ProviderValue)
	}
	if len(f.IDs) > 0 {
		v.Set("Ids", strings.Join(f.IDs, ","))
	}
	if f.SearchTerm != "" {
		v.Set("searchTerm", f.SearchTerm)
	}
	if f.Limit > 0 {
		v.Set("Limit", strconv.Itoa(f.Limit))
	}
	return v
}
