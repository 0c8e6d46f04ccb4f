// Package events holds the publishers the ledger engine notifies after a
// mutation has been committed.
package events

import (
	"context"

	"github.com/josh-kwaku/outflow-ledger/internal/domain"
)

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.EntryEvent) error { return nil }
