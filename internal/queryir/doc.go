// Package queryir provides the query intermediate representation used by
// the catalog's ingestion, query and retrieve paths.
//
// QueryIR is the boundary between the matching engine, which decides WHAT a
// request means (exact-or-null lookups, wildcard and range filters, person
// name alternatives, hierarchy joins), and the SQL backend that decides HOW
// it is spelled for a given database.
//
//	[matching engine] → [Query IR] → [SQL compiler] → database/sql
//
// SEALED INTERFACES:
//
// Query, Source, Predicate and Expr are sealed interfaces using the marker
// method pattern. Only types in this package can implement them, which lets
// the compiler use exhaustive type switches.
//
// VALUES:
//
// Predicate values are plain Go values (string, int64, float64, time.Time)
// and are always bound as parameters, never interpolated.
package queryir
