// Package rating computes the aggregate view of an article's ratings.
package rating

import (
	"math"

	"review-thread/internal/models"
)

// Summary is derived from the rating snapshot and never persisted. It
// is recomputed in full every time the snapshot changes.
type Summary struct {
	Average float64
	Count   int

	byIdentity map[string]int
}

// Aggregate folds the flat rating list into a Summary. Average is
// rounded half-up to one decimal place and is zero when Count is zero;
// callers must check Count before displaying it.
func Aggregate(ratings []models.RatingRecord) Summary {
	summary := Summary{
		Count:      len(ratings),
		byIdentity: make(map[string]int, len(ratings)),
	}

	sum := 0
	for _, record := range ratings {
		sum += record.RatingValue
		// First match wins; the backend enforces one rating per
		// identity, so later duplicates are ignored.
		identity := record.Identity()
		if _, exists := summary.byIdentity[identity]; !exists {
			summary.byIdentity[identity] = record.RatingValue
		}
	}

	if summary.Count > 0 {
		raw := float64(sum) / float64(summary.Count)
		summary.Average = math.Floor(raw*10+0.5) / 10
	}

	return summary
}

// Lookup returns the rating the given identity submitted, if any.
// Used both to render "you already rated X" and to gate whether a new
// rating may be staged at all.
func (s Summary) Lookup(identity string) (int, bool) {
	value, ok := s.byIdentity[identity]
	return value, ok
}

// RecordFor returns the full rating record for an identity, searching
// the snapshot list directly. Needed by rating edits, which address
// the record by its id.
func RecordFor(ratings []models.RatingRecord, identity string) (models.RatingRecord, bool) {
	for _, record := range ratings {
		if record.Identity() == identity {
			return record, true
		}
	}
	return models.RatingRecord{}, false
}
