// Package reconcile applies user mutations to a client-side collection before
// the external service confirms them, and undoes them when it does not.
package reconcile

import (
	"context"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/notify"
)

// DefaultTimeout bounds a confirmation request when Options.Timeout is unset.
const DefaultTimeout = 10 * time.Second

const (
	opLike   = "like"
	opRemove = "remove"
)

// Confirmer records a like toggle with the external service.
type Confirmer interface {
	Confirm(ctx context.Context, itemID, actor string) error
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, itemID, actor string) error

func (f ConfirmFunc) Confirm(ctx context.Context, itemID, actor string) error {
	return f(ctx, itemID, actor)
}

// Options configure a Reconciler.
type Options struct {
	// Entity names the items ("post", "comment") in logs, metrics and errors.
	Entity string
	// Timeout bounds each confirmation request. Zero means DefaultTimeout.
	Timeout  time.Duration
	Executor Executor
	Notifier notify.Notifier
	Metrics  *Metrics
	Logger   *log.Entry
	// LikeFailed and RemoveFailed are the user-facing messages on failure.
	LikeFailed   string
	RemoveFailed string
	// RemoveConfirmed, when set, is announced after a confirmed removal.
	RemoveConfirmed string
}

// Reconciler owns the optimistic mutations of one collection.
type Reconciler[T Item[T]] struct {
	coll    *Collection[T]
	confirm Confirmer
	opts    Options
}

// New creates a Reconciler for coll. confirm is used by ToggleLike.
func New[T Item[T]](coll *Collection[T], confirm Confirmer, opts Options) *Reconciler[T] {
	if opts.Entity == "" {
		opts.Entity = "item"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Executor == nil {
		opts.Executor = &GoExecutor{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "reconcile")
	}
	if opts.LikeFailed == "" {
		opts.LikeFailed = "Failed to like " + opts.Entity
	}
	if opts.RemoveFailed == "" {
		opts.RemoveFailed = "Failed to delete " + opts.Entity
	}
	opts.Logger = opts.Logger.WithField("entity", opts.Entity)
	return &Reconciler[T]{coll: coll, confirm: confirm, opts: opts}
}

// Collection returns the state container.
func (r *Reconciler[T]) Collection() *Collection[T] { return r.coll }

// ToggleLike flips actor's membership in the likes of itemID right away and
// confirms it in the background. If the confirmation fails the change is
// rolled back and an error notification is emitted. Exactly one request is
// made per call.
func (r *Reconciler[T]) ToggleLike(ctx context.Context, itemID, actor string) (*Pending, error) {
	if actor == "" {
		return nil, ErrEmptyIdentity
	}

	var liked bool
	snap, err := r.coll.apply(itemID, func(item T) T {
		next, on := item.LikeSet().Toggle(actor)
		liked = on
		return item.WithLikes(next, actor)
	})
	if err != nil {
		return nil, err
	}
	r.opts.Metrics.outcome(r.opts.Entity, opLike, outcomeApplied)
	r.opts.Logger.WithFields(log.Fields{"id": itemID, "liked": liked}).Debug("like applied")

	p := newPending(itemID, liked)
	undo := func(item T) T {
		likes, _ := item.LikeSet().Toggle(actor)
		return item.WithLikes(likes, actor)
	}
	revert := func(items []T) ([]T, bool) {
		i := indexOf(items, itemID)
		if i < 0 {
			return nil, false
		}
		next := slices.Clone(items)
		next[i] = undo(items[i])
		return next, true
	}
	call := func(ctx context.Context) error {
		return r.confirm.Confirm(ctx, itemID, actor)
	}
	r.opts.Executor.Submit(func() {
		r.settle(ctx, p, opLike, snap, call, revert, undo)
	})
	return p, nil
}

// Remove drops itemID right away and runs confirm in the background. On
// failure the item is put back.
func (r *Reconciler[T]) Remove(ctx context.Context, itemID string, confirm func(ctx context.Context) error) (*Pending, error) {
	snap, removed, index, err := r.coll.remove(itemID)
	if err != nil {
		return nil, err
	}
	r.opts.Metrics.outcome(r.opts.Entity, opRemove, outcomeApplied)
	r.opts.Logger.WithField("id", itemID).Debug("removal applied")

	p := newPending(itemID, false)
	revert := func(items []T) ([]T, bool) {
		if indexOf(items, itemID) >= 0 {
			return nil, false
		}
		at := min(index, len(items))
		next := make([]T, 0, len(items)+1)
		next = append(next, items[:at]...)
		next = append(next, removed)
		next = append(next, items[at:]...)
		return next, true
	}
	r.opts.Executor.Submit(func() {
		r.settle(ctx, p, opRemove, snap, confirm, revert, nil)
	})
	return p, nil
}

func (r *Reconciler[T]) settle(ctx context.Context, p *Pending, op string, snap snapshot[T], call func(context.Context) error, revert func([]T) ([]T, bool), undo func(T) T) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	entry := r.opts.Logger.WithFields(log.Fields{"id": p.ItemID, "op": op})

	start := time.Now()
	err := call(ctx)
	r.opts.Metrics.observe(r.opts.Entity, op, time.Since(start))

	if err == nil {
		r.coll.confirmed(p.ItemID, op == opRemove)
		r.opts.Metrics.outcome(r.opts.Entity, op, outcomeConfirmed)
		entry.Debug("confirmed")
		if op == opRemove && r.opts.RemoveConfirmed != "" {
			r.opts.Notifier.Notify(notify.Success(r.opts.RemoveConfirmed))
		}
		p.resolve(nil, RollbackNone)
		return
	}

	failure := &ConfirmationFailure{Entity: r.opts.Entity, Op: op, ItemID: p.ItemID, Err: err}
	mode := r.coll.rollback(snap, p.ItemID, failure, revert, undo)
	r.opts.Metrics.outcome(r.opts.Entity, op, outcomeFailed)
	r.opts.Metrics.rolledBack(r.opts.Entity, op, mode)
	entry.WithError(err).WithField("rollback", mode).Warn("confirmation failed")

	message := r.opts.LikeFailed
	if op == opRemove {
		message = r.opts.RemoveFailed
	}
	r.opts.Notifier.Notify(notify.Error(message, failure))
	p.resolve(failure, mode)
}
