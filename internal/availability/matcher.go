package availability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/leleasley/lemedia/internal/media"
	"github.com/leleasley/lemedia/internal/mediaserver"
	"github.com/leleasley/lemedia/pkg/title"
)

// Air-date and file-creation-date tolerances, in days. Daily series get
// wider windows because their metadata commonly records the taping date
// on one source and the broadcast date on another.
const (
	airDateTolStandard = 2
	airDateTolDaily    = 3
	createdTolStandard = 2
	createdTolDaily    = 10
)

// Result is an availability answer. ItemID is set whenever a library
// item was identified, even if that item turned out to be a placeholder
// and Available is false.
type Result struct {
	Available bool
	ItemID    string
}

// EpisodeQuery identifies one episode across the identity spaces that
// may or may not be populated for it. Season/Episode of 0 are invalid
// and force air-date-only matching.
type EpisodeQuery struct {
	CatalogID        int64
	LegacyID         int64
	LegacyEpisodeID  int64
	CatalogEpisodeID int64
	Season           int
	Episode          int
	SeriesTitle      string
	AirDate          time.Time
	SeriesType       media.SeriesType
}

// MovieQuery identifies one movie.
type MovieQuery struct {
	CatalogID int64
	Title     string
}

// IsEpisodeAvailable reports whether a playable file for the episode
// exists in the library. Matching precedence, stopping at the first
// candidate that also passes the availability invariant:
//
//  1. direct lookup by the legacy per-episode provider ID
//  2. direct lookup by the catalog per-episode provider ID
//  3. resolve the parent series, bulk-fetch its episode list
//  4. provider-ID re-check within the fetched list
//  5. season/episode numeric match (standard series with valid numbers;
//     daily series skip numeric matching, their numbering is unreliable)
//  6. air-date match, exact day preferred, then within tolerance
//  7. file-creation-date proximity, for episodes missing premiere dates
//
// Answers are cached; concurrent queries for the same episode collapse
// into one upstream pass.
func (c *Checker) IsEpisodeAvailable(ctx context.Context, q EpisodeQuery) (Result, error) {
	key := episodeAnswerKey(q)
	if res, ok := c.answers.get(key); ok {
		return res, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := c.matchEpisode(ctx, q)
		if err != nil {
			return Result{}, err
		}
		c.answers.put(key, res)
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (c *Checker) matchEpisode(ctx context.Context, q EpisodeQuery) (Result, error) {
	// Steps 1-2: the per-episode provider IDs are authoritative when a
	// service has tagged the file.
	for _, probe := range []struct {
		provider string
		id       int64
	}{
		{mediaserver.ProviderLegacy, q.LegacyEpisodeID},
		{mediaserver.ProviderCatalog, q.CatalogEpisodeID},
	} {
		if probe.id == 0 {
			continue
		}
		item, err := c.episodeByProviderID(ctx, probe.provider, probe.id)
		if err != nil {
			return Result{}, err
		}
		if item != nil && item.IsAvailable() {
			return Result{Available: true, ItemID: item.ID}, nil
		}
	}

	// Step 3: parent series, then the full episode list in one call.
	// The two ID numbering schemes disagree on season boundaries often
	// enough that filtering client-side beats a season-scoped query.
	series, err := c.resolveItem(ctx, resolveQuery{
		Kind:      media.TypeTV,
		CatalogID: q.CatalogID,
		LegacyID:  q.LegacyID,
		Title:     q.SeriesTitle,
	})
	if err != nil {
		return Result{}, err
	}
	if series == nil {
		return Result{}, nil
	}

	episodes, err := c.seriesEpisodes(ctx, series.ID)
	if err != nil {
		return Result{}, err
	}

	// Step 4: provider-ID safety net in case the dedicated endpoint
	// missed the episode.
	legacyVal := providerValue(q.LegacyEpisodeID)
	catalogVal := providerValue(q.CatalogEpisodeID)
	for i := range episodes {
		it := &episodes[i]
		if !it.IsAvailable() {
			continue
		}
		if legacyVal != "" && it.ProviderID(mediaserver.ProviderLegacy) == legacyVal {
			return Result{Available: true, ItemID: it.ID}, nil
		}
		if catalogVal != "" && it.ProviderID(mediaserver.ProviderCatalog) == catalogVal {
			return Result{Available: true, ItemID: it.ID}, nil
		}
	}

	daily := q.SeriesType == media.SeriesDaily
	ref := media.EpisodeRef{Season: q.Season, Episode: q.Episode, AirDate: q.AirDate}

	// Step 5: numeric match. Daily series skip this entirely: their
	// season numbering is unreliable across sources and episode numbers
	// repeat between seasons, so dates are the only trustworthy key.
	if !daily && ref.HasValidNumbers() {
		for i := range episodes {
			it := &episodes[i]
			if !it.IsAvailable() {
				continue
			}
			if it.ParentIndexNumber == ref.Season && it.IndexNumber == ref.Episode {
				return Result{Available: true, ItemID: it.ID}, nil
			}
		}
	}

	if ref.AirDate.IsZero() {
		return Result{}, nil
	}

	// Step 6: air date, exact day first.
	for i := range episodes {
		it := &episodes[i]
		if !it.IsAvailable() || it.PremiereDate.IsZero() {
			continue
		}
		if daysApart(it.PremiereDate, ref.AirDate) == 0 {
			return Result{Available: true, ItemID: it.ID}, nil
		}
	}

	airTol := airDateTolStandard
	if daily {
		airTol = airDateTolDaily
	}
	for i := range episodes {
		it := &episodes[i]
		if !it.IsAvailable() || it.PremiereDate.IsZero() {
			continue
		}
		if daysApart(it.PremiereDate, ref.AirDate) <= airTol {
			return Result{Available: true, ItemID: it.ID}, nil
		}
	}

	// Step 7: some libraries carry no premiere dates at all; fall back
	// to when the file appeared.
	createdTol := createdTolStandard
	if daily {
		createdTol = createdTolDaily
	}
	for i := range episodes {
		it := &episodes[i]
		if !it.IsAvailable() || it.DateCreated.IsZero() {
			continue
		}
		if daysApart(it.DateCreated, ref.AirDate) <= createdTol {
			return Result{Available: true, ItemID: it.ID}, nil
		}
	}

	return Result{}, nil
}

// IsMovieAvailable reports whether a playable file for the movie exists
// in the library: resolve the item, then apply the availability
// invariant to it.
func (c *Checker) IsMovieAvailable(ctx context.Context, q MovieQuery) (Result, error) {
	var key string
	if q.CatalogID != 0 {
		key = answerKey("movie", q.CatalogID)
	} else {
		key = nameKey("movie-answer", title.Clean(q.Title))
	}
	if res, ok := c.answers.get(key); ok {
		return res, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		item, err := c.resolveItem(ctx, resolveQuery{
			Kind:      media.TypeMovie,
			CatalogID: q.CatalogID,
			Title:     q.Title,
		})
		if err != nil {
			return Result{}, err
		}

		var res Result
		if item != nil {
			res = Result{Available: item.IsAvailable(), ItemID: item.ID}
		}
		c.answers.put(key, res)
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// episodeByProviderID looks one episode up by an external per-episode
// provider ID.
func (c *Checker) episodeByProviderID(ctx context.Context, provider string, id int64) (*mediaserver.LibraryItem, error) {
	items, err := c.library.QueryItems(ctx, mediaserver.Filter{
		ProviderName:  provider,
		ProviderValue: strconv.FormatInt(id, 10),
		IncludeTypes:  []mediaserver.ItemType{mediaserver.ItemEpisode},
		Recursive:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("episode by %s id %d: %w", provider, id, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// seriesEpisodes returns the cached full episode list for a series.
func (c *Checker) seriesEpisodes(ctx context.Context, seriesID string) ([]mediaserver.LibraryItem, error) {
	key := episodesKey(seriesID)
	if eps, ok := c.episodes.get(key); ok {
		return eps, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		eps, err := c.library.EpisodesForSeries(ctx, seriesID)
		if err != nil {
			return nil, err
		}
		c.episodes.put(key, eps)
		return eps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]mediaserver.LibraryItem), nil
}

func providerValue(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// daysApart returns the absolute distance between two timestamps in
// calendar days, ignoring the time of day.
func daysApart(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := au.Sub(bu) / (24 * time.Hour)
	if diff < 0 {
		diff = -diff
	}
	return int(diff)
}
