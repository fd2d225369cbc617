// Package match turns request attribute values into QueryIR predicates and
// plans the joins that answer query, retrieve and ingestion lookups.
//
// Matching rules per value:
//   - empty or "*" alone: universal, no filter
//   - '*' or '?' present: LIKE with '%', '_' and '\' escaped first
//   - DA, TM and DT: range matching (see ParseRange)
//   - numeric columns: equality on the coerced value; unconvertible
//     values match everything instead of failing the request
//   - UI lists ("a\b"): IN
//   - PN with person-name matching enabled: OR of phonetic, canonical and
//     raw comparisons
//
// Nothing in this package touches the database. Plans are compiled by
// querysql and executed by the store.
package match
