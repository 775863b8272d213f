// Package models defines the data model for the track dimension pipeline.
//
// The package contains three categories of types:
//
// 1. Staged data: raw, semi-structured records between landing and merge
//   - [StagedRecord] : one staging-table row (raw JSON, source file, load timestamp)
//   - [RawTrack] : lenient projection of the raw JSON used by the normalizer
//
// 2. Normalized data: flat, deduplicated rows ready for the merge engine
//   - [NormalizedRow] : one row per business key per cycle, with row hash
//
// 3. Dimension data: persisted SCD Type 2 history
//   - [DimensionRecord] : one historical version of a track's attributes
//   - [MergePlan] : the mutation set a merge cycle applies to the dimension table
//
// StagedRecord rows are ephemeral: they exist between bulk copy and a
// successful merge, after which the staging table is truncated. Dimension
// records are never physically deleted.
package models
