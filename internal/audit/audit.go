// Package audit provides the narrow persistence capability the Execution
// Engine writes one record to per call: put, get, list, prune(before). No
// SQL leaks through this layer (spec §6); callers treat it as a key/value
// capability, not a query engine.
package audit

import (
	"context"
	"time"

	"github.com/giantswarm/brokerd/internal/brokerapi"
)

// Store is the persistence contract the engine writes audit records
// through. Implementations must serialize their own writes; the engine
// never blocks a result on Put completing (spec §5).
type Store interface {
	Put(ctx context.Context, rec brokerapi.ExecutionRecord) error
	Get(ctx context.Context, callableID string) ([]brokerapi.ExecutionRecord, error)
	List(ctx context.Context, filter Filter) ([]brokerapi.ExecutionRecord, error)
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Filter narrows List; a zero value matches everything.
type Filter struct {
	CallableID string
	Status     string // "" | "ok" | "error"
	Since      time.Time
	Limit      int
}

func (f Filter) matches(rec brokerapi.ExecutionRecord) bool {
	if f.CallableID != "" && rec.CallableID != f.CallableID {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && rec.StartedAt.Before(f.Since) {
		return false
	}
	return true
}
