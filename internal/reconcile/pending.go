package reconcile

import "context"

// Pending tracks one optimistic mutation until its confirmation resolves.
type Pending struct {
	ItemID string
	// Liked is the actor's membership after the optimistic apply. Always
	// false for removals.
	Liked bool

	done     chan struct{}
	err      error
	rollback RollbackMode
}

func newPending(itemID string, liked bool) *Pending {
	return &Pending{ItemID: itemID, Liked: liked, done: make(chan struct{})}
}

func (p *Pending) resolve(err error, mode RollbackMode) {
	p.err = err
	p.rollback = mode
	close(p.done)
}

// Done is closed once the mutation is confirmed or rolled back.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns nil until Done is closed, then the outcome: nil on success or a
// *ConfirmationFailure.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Rollback returns how a failure was undone. Valid after Done.
func (p *Pending) Rollback() RollbackMode {
	select {
	case <-p.done:
		return p.rollback
	default:
		return RollbackNone
	}
}

// Wait blocks until the mutation resolves or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
