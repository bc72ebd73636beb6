// Package service implements the record lifecycle around the scoring engine:
// every mutation of a lead or deal that touches a scoring input is followed
// by a recomputation against the post-merge state.
package service

import (
	"context"
	"time"
)

// maxUpdateAttempts bounds the optimistic-lock retries of one mutation.
const maxUpdateAttempts = 3

// Clock returns the current time.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// Invalidator drops derived data of a tenant after its records change.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}
