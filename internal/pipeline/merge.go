package pipeline

import (
	"github.com/desertthunder/tracklake/internal/models"
)

// PlanMerge computes the SCD Type 2 mutation set for one cycle.
//
// Inputs are the cycle's normalized rows (one per business key), the
// dimension table's current records keyed by business key, and max(version)
// per key over every persisted row including expired ones. The function is
// pure; applying the returned plan is the repository's job.
//
// Per business key:
//   - no current record → insert at max(version)+1 (1 on first sighting)
//   - current record with an equal row hash → no mutation
//   - current record with a differing row hash → expire it at the row's load
//     timestamp and insert the successor at version+1
//
// Keys present in the dimension but absent from the cycle are untouched; the
// source never reports deletions. Deriving the insert version from
// maxVersions rather than the current record keeps version numbers continuous
// for a key whose current record was expired but whose successor insert never
// landed: the next cycle sees no current record and still resumes at the old
// version + 1.
func PlanMerge(rows []models.NormalizedRow, current map[string]models.DimensionRecord, maxVersions map[string]int) models.MergePlan {
	var plan models.MergePlan

	for _, row := range rows {
		cur, exists := current[row.TrackID]

		if exists && cur.RowHash == row.RowHash {
			plan.Unchanged++
			continue
		}

		if exists {
			plan.Expirations = append(plan.Expirations, models.Expiration{
				SurrogateKey: cur.SurrogateKey,
				TrackID:      row.TrackID,
				EffectiveEnd: row.LoadedAt,
			})
		}

		plan.Insertions = append(plan.Insertions, models.Insertion{
			Row:            row,
			Version:        maxVersions[row.TrackID] + 1,
			EffectiveStart: row.LoadedAt,
		})
	}

	return plan
}
