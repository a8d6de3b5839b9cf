package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound is returned when the target of a mutation is not in the
	// collection. No request is made in that case.
	ErrItemNotFound = errors.New("item not found")
	// ErrEmptyIdentity is returned when a toggle has no acting wallet.
	ErrEmptyIdentity = errors.New("acting identity is empty")
	// ErrConfirmation matches every ConfirmationFailure via errors.Is.
	ErrConfirmation = errors.New("confirmation failed")
)

// ConfirmationFailure reports that the external service did not acknowledge
// an optimistic mutation. The local state has already been rolled back when
// a caller sees it.
type ConfirmationFailure struct {
	Entity string
	Op     string
	ItemID string
	Err    error
}

func (e *ConfirmationFailure) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ItemID, e.Err)
}

func (e *ConfirmationFailure) Unwrap() []error {
	return []error{ErrConfirmation, e.Err}
}

// RollbackMode says how a failed mutation was undone.
type RollbackMode string

const (
	// RollbackNone: nothing was left to undo, or the mutation succeeded.
	RollbackNone RollbackMode = "none"
	// RollbackSnapshot: the collection was restored to the exact value it had
	// before the mutation.
	RollbackSnapshot RollbackMode = "snapshot"
	// RollbackReverted: later mutations had landed, so only this mutation's
	// effect was undone.
	RollbackReverted RollbackMode = "reverted"
	// RollbackSuperseded: the collection was refetched since the mutation and
	// the fetched state was kept.
	RollbackSuperseded RollbackMode = "superseded"
	// RollbackDeferred: the item was optimistically removed when the
	// mutation failed. The undo is applied if the removal fails too.
	RollbackDeferred RollbackMode = "deferred"
)
