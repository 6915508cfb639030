package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthFailed signals that a bearer token could not be acquired or was rejected.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrQuerySyntax signals that the analytics backend rejected the query text.
	ErrQuerySyntax = errors.New("query syntax error")
	// ErrRateLimited signals a rate limit hit on the analytics backend.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransport signals a non-categorized transport failure.
	ErrTransport = errors.New("transport error")
	// ErrDestructiveQuery signals a query rejected by the pre-execution safety check.
	ErrDestructiveQuery = errors.New("destructive query rejected")
)

// DestructiveQueryError wraps ErrDestructiveQuery with the offending control verbs.
type DestructiveQueryError struct {
	Verbs []string
}

func (e *DestructiveQueryError) Error() string {
	return fmt.Sprintf("%s: contains %s", ErrDestructiveQuery.Error(), strings.Join(e.Verbs, ", "))
}

func (e *DestructiveQueryError) Unwrap() error { return ErrDestructiveQuery }

// NewDestructiveQuery creates a destructive query error listing the matched verbs.
func NewDestructiveQuery(verbs []string) error {
	return &DestructiveQueryError{Verbs: verbs}
}
