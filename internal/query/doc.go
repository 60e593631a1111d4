// Package query builds and rewrites arXiv search_query expressions.
//
// Compile turns a structured SearchIntent into a field-qualified boolean
// query. The remaining helpers inspect or rewrite query text for the
// orchestrator's recovery branches: HasExplicitOperators decides whether raw
// input is already a query, RelaxAuthors widens strict author clauses,
// JoinTermsWithAnd repairs queries the provider failed to parse, and
// EscapeLiteral prepares raw text for the legacy request.
package query
