package availability

import (
	"context"
	"strings"
	"sync"

	"github.com/leleasley/lemedia/internal/mediaserver"
)

// fakeLibrary is an in-memory LibraryClient. Knobs simulate the two
// real-server quirks the resolver has to survive: type-restricted
// provider queries returning nothing for mistyped items, and the
// dedicated episode lookup endpoint missing episodes that the bulk
// list contains.
type fakeLibrary struct {
	mu               sync.Mutex
	items            []mediaserver.LibraryItem
	episodesBySeries map[string][]mediaserver.LibraryItem

	brokenTypeFilter  bool
	missEpisodeLookup bool

	queryErr    error
	episodesErr error
	searchErr   error

	queryCalls    int
	episodesCalls int
	searchCalls   int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{episodesBySeries: make(map[string][]mediaserver.LibraryItem)}
}

func (f *fakeLibrary) QueryItems(_ context.Context, filter mediaserver.Filter) ([]mediaserver.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++

	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.missEpisodeLookup && len(filter.IncludeTypes) == 1 && filter.IncludeTypes[0] == mediaserver.ItemEpisode {
		return nil, nil
	}
	if f.brokenTypeFilter && len(filter.IncludeTypes) > 0 {
		return nil, nil
	}

	var out []mediaserver.LibraryItem
	for _, it := range f.items {
		if len(filter.IDs) > 0 && !containsString(filter.IDs, it.ID) {
			continue
		}
		if filter.ProviderName != "" && it.ProviderID(filter.ProviderName) != filter.ProviderValue {
			continue
		}
		if len(filter.IncludeTypes) > 0 && !containsType(filter.IncludeTypes, it.Type) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeLibrary) EpisodesForSeries(_ context.Context, seriesID string) ([]mediaserver.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.episodesCalls++

	if f.episodesErr != nil {
		return nil, f.episodesErr
	}
	return f.episodesBySeries[seriesID], nil
}

func (f *fakeLibrary) SearchByName(_ context.Context, term string, types ...mediaserver.ItemType) ([]mediaserver.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++

	if f.searchErr != nil {
		return nil, f.searchErr
	}

	var out []mediaserver.LibraryItem
	for _, it := range f.items {
		if !strings.Contains(strings.ToLower(it.Name), strings.ToLower(term)) {
			continue
		}
		if len(types) > 0 && !containsType(types, it.Type) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeLibrary) calls() (query, episodes, search int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls, f.episodesCalls, f.searchCalls
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(list []mediaserver.ItemType, t mediaserver.ItemType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
