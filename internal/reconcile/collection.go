package reconcile

import (
	"slices"
	"sync"

	"github.com/MosinFAM/decentratweet/internal/models"
)

// Item is an entity carrying a like relation. WithLikes must return a copy
// whose like count and liked flag are derived from likes in the same step.
type Item[T any] interface {
	Key() string
	LikeSet() models.Likes
	WithLikes(likes models.Likes, actor string) T
}

// ChangeKind names a state transition of a Collection.
type ChangeKind string

const (
	ChangeReplaced   ChangeKind = "replaced"
	ChangeApplied    ChangeKind = "applied"
	ChangeConfirmed  ChangeKind = "confirmed"
	ChangeRolledBack ChangeKind = "rolled_back"
	ChangeInserted   ChangeKind = "inserted"
	ChangeRemoved    ChangeKind = "removed"
)

// Change is delivered to subscribers after every transition. Items is the
// whole collection after the change.
type Change[T any] struct {
	Kind    ChangeKind
	ItemID  string
	Items   []T
	Version uint64
	Err     error
}

// Collection is the in-memory state container for one list of items.
// The backing slice is never written in place: every mutation installs a new
// slice, so a reference taken before a mutation stays the exact prior value.
type Collection[T Item[T]] struct {
	mu          sync.RWMutex
	items       []T
	version     uint64
	epoch       uint64
	subscribers map[int]chan Change[T]
	nextSub     int
	// deferred holds undos of failed mutations whose item was removed at
	// the time. They are replayed if a failed removal brings the item back.
	deferred map[string][]func(T) T
}

// snapshot is the rollback target captured by one optimistic mutation.
type snapshot[T any] struct {
	items   []T
	version uint64 // version produced by the optimistic apply
	epoch   uint64
}

// NewCollection creates an empty collection.
func NewCollection[T Item[T]]() *Collection[T] {
	return &Collection[T]{
		items:       []T{},
		subscribers: make(map[int]chan Change[T]),
		deferred:    make(map[string][]func(T) T),
	}
}

// Items returns the current items.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the item with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.items, id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Version increases on every mutation.
func (c *Collection[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Replace installs a freshly fetched list, superseding any pending
// optimistic state.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.Clone(items)
	if c.items == nil {
		c.items = []T{}
	}
	c.version++
	c.epoch++
	clear(c.deferred)
	c.publish(ChangeReplaced, "", nil)
}

// Prepend puts item at the head. It returns false and changes nothing when an
// item with the same key is already present.
func (c *Collection[T]) Prepend(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if indexOf(c.items, item.Key()) >= 0 {
		return false
	}
	next := make([]T, 0, len(c.items)+1)
	next = append(next, item)
	next = append(next, c.items...)
	c.items = next
	c.version++
	delete(c.deferred, item.Key())
	c.publish(ChangeInserted, item.Key(), nil)
	return true
}

// Subscribe returns a channel of changes and a function that cancels the
// subscription. Delivery never blocks the writer: when the buffer is full the
// change is skipped, and the next one carries the full state anyway.
func (c *Collection[T]) Subscribe(buffer int) (<-chan Change[T], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Change[T], buffer)
	c.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Close ends every subscription.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}

// apply replaces the item with id by fn(item) and returns the rollback target.
func (c *Collection[T]) apply(id string, fn func(T) T) (snapshot[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOf(c.items, id)
	if i < 0 {
		return snapshot[T]{}, ErrItemNotFound
	}
	prev := c.items
	next := slices.Clone(prev)
	next[i] = fn(prev[i])
	c.items = next
	c.version++
	c.publish(ChangeApplied, id, nil)
	return snapshot[T]{items: prev, version: c.version, epoch: c.epoch}, nil
}

// remove drops the item with id and returns the rollback target together
// with the removed item and its position.
func (c *Collection[T]) remove(id string) (snapshot[T], T, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	i := indexOf(c.items, id)
	if i < 0 {
		return snapshot[T]{}, zero, -1, ErrItemNotFound
	}
	prev := c.items
	removed := prev[i]
	next := make([]T, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	c.items = next
	c.version++
	c.publish(ChangeRemoved, id, nil)
	return snapshot[T]{items: prev, version: c.version, epoch: c.epoch}, removed, i, nil
}

// confirmed announces a successful confirmation. A confirmed removal drops
// the undos deferred for its item.
func (c *Collection[T]) confirmed(id string, removal bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if removal {
		delete(c.deferred, id)
	}
	c.publish(ChangeConfirmed, id, nil)
}

// rollback undoes one failed optimistic mutation. If nothing else touched the
// collection since, the snapshot is restored verbatim. If a Replace happened
// since, the fetched state wins and nothing is undone. Otherwise revert
// computes the undo against the current items. When revert finds no item and
// undo is set, undo is kept until the item comes back through a rollback.
func (c *Collection[T]) rollback(s snapshot[T], id string, cause error, revert func([]T) ([]T, bool), undo func(T) T) RollbackMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	var mode RollbackMode
	switch {
	case c.version == s.version:
		c.items = s.items
		mode = RollbackSnapshot
	case c.epoch != s.epoch:
		return RollbackSuperseded
	default:
		next, ok := revert(c.items)
		if !ok {
			if undo == nil {
				return RollbackNone
			}
			c.deferred[id] = append(c.deferred[id], undo)
			return RollbackDeferred
		}
		c.items = next
		mode = RollbackReverted
	}
	c.replayDeferred(id)
	c.version++
	c.publish(ChangeRolledBack, id, cause)
	return mode
}

// replayDeferred applies the undos kept for id once the item is back. Must be
// called with mu held.
func (c *Collection[T]) replayDeferred(id string) {
	undos := c.deferred[id]
	if len(undos) == 0 {
		return
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return
	}
	next := slices.Clone(c.items)
	for _, undo := range undos {
		next[i] = undo(next[i])
	}
	c.items = next
	delete(c.deferred, id)
}

// publish must be called with mu held.
func (c *Collection[T]) publish(kind ChangeKind, id string, err error) {
	if len(c.subscribers) == 0 {
		return
	}
	change := Change[T]{
		Kind:    kind,
		ItemID:  id,
		Items:   slices.Clone(c.items),
		Version: c.version,
		Err:     err,
	}
	for _, ch := range c.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}

func indexOf[T Item[T]](items []T, id string) int {
	for i, item := range items {
		if item.Key() == id {
			return i
		}
	}
	return -1
}
