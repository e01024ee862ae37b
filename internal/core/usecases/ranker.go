package usecases

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/pkg/geospatial"
)

// DefaultTopN is the number of records kept per category.
const DefaultTopN = 5

// Ranker turns raw candidates into a deduplicated, distance-ordered list.
type Ranker struct {
	topN int
}

// NewRanker creates a Ranker keeping at most topN records.
func NewRanker(topN int) *Ranker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Ranker{topN: topN}
}

// Rank dedupes candidates by name and rounded coordinate, sorts them by
// distance from origin and truncates. Equal distances keep provider order.
func (r *Ranker) Rank(origin domain.GeoPoint, candidates []domain.POICandidate) []domain.POIRecord {
	records := make([]domain.POIRecord, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		rec := toRecord(origin, c)
		key := dedupeKey(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DistanceKm < records[j].DistanceKm
	})

	if len(records) > r.topN {
		records = records[:r.topN]
	}
	return records
}

func toRecord(origin domain.GeoPoint, c domain.POICandidate) domain.POIRecord {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = "Unnamed " + c.Category.Title()
	}
	return domain.POIRecord{
		Name:       name,
		Category:   c.Category,
		Address:    formatAddress(c.Street, c.City),
		Latitude:   c.Location.Lat,
		Longitude:  c.Location.Lon,
		DistanceKm: geospatial.DistanceKm(origin, c.Location),
		Phone:      strings.TrimSpace(c.Phone),
	}
}

func formatAddress(street, city string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{street, city} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return domain.AddressUnavailable
	}
	return strings.Join(parts, ", ")
}

// dedupeKey rounds to 4 decimals (~11 m) so a node and its way center collapse.
func dedupeKey(r domain.POIRecord) string {
	return fmt.Sprintf("%s|%.4f|%.4f", strings.ToLower(r.Name), r.Latitude, r.Longitude)
}
