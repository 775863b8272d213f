// Package pipeline implements the batch cycle that keeps the track dimension
// table consistent with the catalog's new releases.
//
// # Core Operations
//
// The cycle runs four stages in order:
//
//  1. Extract : fetch new-release albums and their tracks from the catalog
//  2. Land : write the enriched tracks as JSONL to the object store
//  3. Copy : bulk copy the landed object into the staging table
//  4. Merge : normalize staged rows and reconcile them against the dimension
//     table with SCD Type 2 semantics, then truncate staging
//
// # Merge semantics
//
// [Normalize] flattens staged records to one row per business key, latest
// load timestamp winning. [RowHash] fingerprints each row's mutable
// attributes. [PlanMerge] is a pure function from normalized rows and the
// dimension's current state to a [models.MergePlan]: first sightings insert
// version 1, unchanged hashes produce no mutation, changed hashes expire the
// current record and insert its successor. The plan is applied in a single
// transaction, so re-running a cycle is idempotent and no reader ever
// observes a key with zero or two current records.
//
// Version numbers continue from max(version) across all persisted rows for a
// key, expired ones included, so an interrupted cycle never restarts a key's
// history at 1.
//
// # Implementation
//
// [Pipeline] wires the stages together with constructor-injected
// dependencies: a [services.Catalog], a [landing.Zone], and the staging and
// dimension repositories. There is no module-level client state.
package pipeline
