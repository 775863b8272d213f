// Package repositories implements warehouse persistence for the staging and
// dimension tables.
//
// Both repositories run over database/sql with the driver chosen at startup:
// sqlite3 for local runs and tests, postgres for the deployed warehouse.
// Queries are written once with ?-placeholders and rebound per driver.
//
// Key implementations:
//   - [StagingRepository] : bulk copy of landed JSONL into tracks_staging,
//     row reads for normalization, truncation after a successful merge
//   - [DimensionRepository] : current-row and version lookups for merge
//     planning, transactional plan application, history reads
package repositories

import (
	"github.com/desertthunder/tracklake/internal/shared"
)

// rebind adapts a ?-placeholder query to the repository's driver.
func rebind(driver, query string) string {
	return shared.Rebind(driver, query)
}
