// Package store is the metadata catalog: a relational store with one table
// per hierarchy level, synthesized from the model and dictionary.
//
// Objects are ingested with Insert, which walks the hierarchy from the root
// and reuses or creates one row per level. Rows are read back with the Find
// family, matched with OpenQuery, resolved to stored files with Retrieve and
// removed with DeleteRow or the cascading DeleteSubtree.
//
// # Matching
//
// Find-or-create matches every key column exact-or-null: a supplied value
// compares with equality, a missing one with IS NULL. Query matching is
// planned by package match and compiled by package querysql; every value is
// a bound parameter.
//
// # Concurrency
//
//   - Insert, the deletes and AddColumn hold the write lock and run in one
//     transaction each
//   - Read statements hold the read lock while executing; a cursor's result
//     set stays open across Next calls without it
//   - Computed attributes run on another pool connection, so MaxOpenConns
//     is at least 2
//
// # Errors
//
// Failures are *Error values with a code: CONFIGURATION from Open,
// IDENTIFIER_DOES_NOT_MATCH_MODEL for requests that do not fit the model,
// UNABLE_TO_PROCESS for statements that fail. Use IsConfiguration,
// IsModelMismatch and IsUnableToProcess.
package store
