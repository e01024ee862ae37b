package usecases

import (
	"context"
	"sort"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/core/ports"
	"github.com/yash1732/gigguard/internal/pkg/logging"
)

// SearchStrategy finds candidates for one category by widening the search
// radius only when the narrower one came back empty.
type SearchStrategy struct {
	provider  ports.POIProvider
	radii     []int
	fallbacks map[domain.Category]domain.Category
}

// NewSearchStrategy creates a SearchStrategy. radii are tried in increasing
// order; fallbacks maps a category to the one searched when it finds nothing.
func NewSearchStrategy(provider ports.POIProvider, radii []int, fallbacks map[domain.Category]domain.Category) *SearchStrategy {
	sorted := make([]int, 0, len(radii))
	for _, r := range radii {
		if r > 0 {
			sorted = append(sorted, r)
		}
	}
	sort.Ints(sorted)
	return &SearchStrategy{provider: provider, radii: sorted, fallbacks: fallbacks}
}

// Search returns the candidates from the first radius that yields any.
// An empty result means no coverage and is not an error.
func (s *SearchStrategy) Search(ctx context.Context, category domain.Category, origin domain.GeoPoint) []domain.POICandidate {
	if found := s.expand(ctx, category, origin); len(found) > 0 {
		return found
	}

	fb, ok := s.fallbacks[category]
	if !ok || fb == category {
		return nil
	}
	logging.FromContext(ctx).Info("no coverage, searching fallback category",
		"category", category, "fallback", fb)
	return s.expand(ctx, fb, origin)
}

func (s *SearchStrategy) expand(ctx context.Context, category domain.Category, origin domain.GeoPoint) []domain.POICandidate {
	for _, radius := range s.radii {
		if ctx.Err() != nil {
			return nil
		}
		if found := s.provider.Query(ctx, category, origin, radius); len(found) > 0 {
			return found
		}
	}
	return nil
}
