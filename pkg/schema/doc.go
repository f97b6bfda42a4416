// Package schema checks machine definitions beyond the structural
// validation the domain layer performs at build time.
//
// A definition can be structurally sound and still broken in practice:
// a state no event sequence reaches, a transition shadowed by an
// earlier unguarded one, a token whose event nothing consumes. Check
// finds these and reports them as warnings, leaving the decision of
// whether to run anyway to the caller.
package schema
