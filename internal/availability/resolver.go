// Package availability answers the two questions every request decision
// hangs on: "is this title already in the library?" and "which media
// server item is this title, exactly?". All lookups read through
// bounded-TTL caches so page renders do not hammer the media server.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/mediaserver"
	"github.com/leleasley/lemedia/pkg/title"
)

// fuzzyTitleThreshold is the minimum Jaro-Winkler score for a title
// search result to count as the same title.
const fuzzyTitleThreshold = 0.85

// LibraryClient is the slice of the media server the checker needs.
type LibraryClient interface {
	QueryItems(ctx context.Context, f mediaserver.Filter) ([]mediaserver.LibraryItem, error)
	EpisodesForSeries(ctx context.Context, seriesID string) ([]mediaserver.LibraryItem, error)
	SearchByName(ctx context.Context, term string, types ...mediaserver.ItemType) ([]mediaserver.LibraryItem, error)
}

// Checker resolves identities and decides availability against the
// media server. It owns the process-wide lookup caches; construct one at
// startup and share it.
type Checker struct {
	library  LibraryClient
	ids      *ttlCache[string]
	answers  *ttlCache[Result]
	episodes *ttlCache[[]mediaserver.LibraryItem]
	group    singleflight.Group
	log      *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithTTLs overrides the identity and season-structure cache TTLs.
// Zero keeps the default for that cache.
func WithTTLs(identity, episodes time.Duration) Option {
	return func(c *Checker) {
		if identity > 0 {
			c.ids = newTTLCache[string](identity)
			c.answers = newTTLCache[Result](identity)
		}
		if episodes > 0 {
			c.episodes = newTTLCache[[]mediaserver.LibraryItem](episodes)
		}
	}
}

// New creates a Checker backed by the given library client.
func New(library LibraryClient, log *slog.Logger, opts ...Option) *Checker {
	if log == nil {
		log = slog.Default()
	}
	c := &Checker{
		library:  library,
		ids:      newTTLCache[string](identityTTL),
		answers:  newTTLCache[Result](identityTTL),
		episodes: newTTLCache[[]mediaserver.LibraryItem](episodesTTL),
		log:      log.With("component", "availability"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveQuery carries the identity tuple being resolved.
type resolveQuery struct {
	Kind      media.Type
	CatalogID int64
	LegacyID  int64
	Title     string
}

func (q resolveQuery) itemType() mediaserver.ItemType {
	if q.Kind == media.TypeTV {
		return mediaserver.ItemSeries
	}
	return mediaserver.ItemMovie
}

// resolveStrategy is one step of the ordered fallback chain. A strategy
// returns (nil, nil) when it simply finds nothing; errors propagate.
type resolveStrategy struct {
	name string
	// cacheKey keys this step's result independently of the others.
	// Empty means the step does not apply to this query.
	cacheKey func(q resolveQuery) string
	run      func(ctx context.Context, q resolveQuery) (*mediaserver.LibraryItem, error)
}

// strategies returns the resolution order. This order is a precedence
// contract: provider-ID matches are authoritative, and title search can
// false-positive on common titles, so callers must never skip ahead.
func (c *Checker) strategies() []resolveStrategy {
	return []resolveStrategy{
		{
			name: "catalog-id",
			cacheKey: func(q resolveQuery) string {
				if q.CatalogID == 0 {
					return ""
				}
				return idKey(string(q.Kind), q.CatalogID)
			},
			run: c.resolveByCatalogID,
		},
		{
			name: "legacy-id",
			cacheKey: func(q resolveQuery) string {
				if q.Kind != media.TypeTV || q.LegacyID == 0 {
					return ""
				}
				return idKey("tv-legacy", q.LegacyID)
			},
			run: c.resolveByLegacyID,
		},
		{
			name: "title-search",
			cacheKey: func(q resolveQuery) string {
				if q.Title == "" {
					return ""
				}
				return nameKey(string(q.Kind), title.Clean(q.Title))
			},
			run: c.resolveByTitle,
		},
	}
}

// ResolveItemID resolves a (catalog-ID, legacy-ID, title) tuple to the
// media server's item ID. Returns ok=false when the title is simply not
// in the library. Each strategy's outcome is cached independently,
// not-found included, so repeat lookups inside one TTL window cost
// nothing.
func (c *Checker) ResolveItemID(ctx context.Context, kind media.Type, catalogID int64, seriesTitle string, legacyID int64) (string, bool, error) {
	item, err := c.resolveItem(ctx, resolveQuery{
		Kind:      kind,
		CatalogID: catalogID,
		LegacyID:  legacyID,
		Title:     seriesTitle,
	})
	if err != nil {
		return "", false, err
	}
	if item == nil {
		return "", false, nil
	}
	return item.ID, true, nil
}

// resolveItem walks the strategy chain and returns the first match.
// Concurrent resolutions of the same tuple are collapsed into one
// upstream pass.
func (c *Checker) resolveItem(ctx context.Context, q resolveQuery) (*mediaserver.LibraryItem, error) {
	flightKey := fmt.Sprintf("resolve:%s:%d:%d:%s", q.Kind, q.CatalogID, q.LegacyID, title.Clean(q.Title))
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		return c.resolveItemLocked(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*mediaserver.LibraryItem), nil
}

func (c *Checker) resolveItemLocked(ctx context.Context, q resolveQuery) (*mediaserver.LibraryItem, error) {
	for _, s := range c.strategies() {
		key := s.cacheKey(q)
		if key == "" {
			continue
		}

		if id, ok := c.ids.get(key); ok {
			if id == "" {
				continue // known not-found for this step
			}
			item, err := c.itemByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if item != nil {
				return item, nil
			}
			// The cached ID no longer exists; fall through and re-run.
		}

		item, err := s.run(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", s.name, err)
		}
		if item == nil {
			c.ids.put(key, "")
			continue
		}
		c.ids.put(key, item.ID)
		c.log.Debug("resolved item",
			"strategy", s.name, "kind", q.Kind, "catalog_id", q.CatalogID, "item_id", item.ID)
		return item, nil
	}
	return nil, nil
}

// itemByID refetches a single item whose ID is already known.
func (c *Checker) itemByID(ctx context.Context, id string) (*mediaserver.LibraryItem, error) {
	items, err := c.library.QueryItems(ctx, mediaserver.Filter{IDs: []string{id}})
	if err != nil {
		return nil, fmt.Errorf("item by id %s: %w", id, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// resolveByCatalogID queries by the catalog's external provider ID,
// restricted to the expected item type. When the type-restricted query
// comes back empty, an unrestricted query runs and the first item of
// the matching type wins; some servers fail to classify items that were
// imported before their metadata arrived.
func (c *Checker) resolveByCatalogID(ctx context.Context, q resolveQuery) (*mediaserver.LibraryItem, error) {
	return c.resolveByProviderID(ctx, mediaserver.ProviderCatalog, q.CatalogID, q.itemType())
}

// resolveByLegacyID is the tv-only variant keyed by the legacy TV
// database ID.
func (c *Checker) resolveByLegacyID(ctx context.Context, q resolveQuery) (*mediaserver.LibraryItem, error) {
	return c.resolveByProviderID(ctx, mediaserver.ProviderLegacy, q.LegacyID, mediaserver.ItemSeries)
}

func (c *Checker) resolveByProviderID(ctx context.Context, provider string, id int64, want mediaserver.ItemType) (*mediaserver.LibraryItem, error) {
	value := strconv.FormatInt(id, 10)

	items, err := c.library.QueryItems(ctx, mediaserver.Filter{
		ProviderName:  provider,
		ProviderValue: value,
		IncludeTypes:  []mediaserver.ItemType{want},
		Recursive:     true,
	})
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return &items[0], nil
	}

	// Unrestricted fallback, accepting the first item of the right type.
	items, err = c.library.QueryItems(ctx, mediaserver.Filter{
		ProviderName:  provider,
		ProviderValue: value,
		Recursive:     true,
	})
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Type == want {
			return &items[i], nil
		}
	}
	return nil, nil
}

// resolveByTitle free-text searches the library. Exact case-insensitive
// matches win, then normalized-equal titles, then a fuzzy match, then
// the first result of the correct type.
func (c *Checker) resolveByTitle(ctx context.Context, q resolveQuery) (*mediaserver.LibraryItem, error) {
	want := q.itemType()
	items, err := c.library.SearchByName(ctx, q.Title, want)
	if err != nil {
		return nil, err
	}

	var candidates []*mediaserver.LibraryItem
	for i := range items {
		if items[i].Type == want {
			candidates = append(candidates, &items[i])
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	for _, it := range candidates {
		if strings.EqualFold(it.Name, q.Title) {
			return it, nil
		}
	}

	cleaned := title.Clean(q.Title)
	for _, it := range candidates {
		if title.Clean(it.Name) == cleaned {
			return it, nil
		}
	}

	for _, it := range candidates {
		if title.Similarity(it.Name, q.Title) >= fuzzyTitleThreshold {
			return it, nil
		}
	}

	return candidates[0], nil
}
