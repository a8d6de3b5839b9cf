package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/notify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errDown = errors.New("service unavailable")

// scriptedConfirmer answers with the next queued result, nil when exhausted.
type scriptedConfirmer struct {
	results []error
	calls   []string
}

func (s *scriptedConfirmer) Confirm(_ context.Context, itemID, actor string) error {
	s.calls = append(s.calls, itemID+"/"+actor)
	if len(s.results) == 0 {
		return nil
	}
	err := s.results[0]
	s.results = s.results[1:]
	return err
}

func post(id string, voters ...string) models.Post {
	likes := models.Likes{}
	for _, v := range voters {
		likes = append(likes, models.Like{WalletAddress: v})
	}
	return models.Post{ID: id, Content: "gm " + id}.WithLikes(likes, "0xA")
}

type fixture struct {
	coll     *Collection[models.Post]
	exec     *ManualExecutor
	confirm  *scriptedConfirmer
	notices  *notify.Recorder
	metrics  *Metrics
	rec      *Reconciler[models.Post]
	registry *prometheus.Registry
}

func newFixture(t *testing.T, items ...models.Post) *fixture {
	t.Helper()
	f := &fixture{
		coll:     NewCollection[models.Post](),
		exec:     &ManualExecutor{},
		confirm:  &scriptedConfirmer{},
		notices:  &notify.Recorder{},
		registry: prometheus.NewRegistry(),
	}
	f.metrics = NewMetrics(f.registry)
	f.coll.Replace(items)
	f.rec = New(f.coll, f.confirm, Options{
		Entity:   "post",
		Executor: f.exec,
		Notifier: f.notices,
		Metrics:  f.metrics,
	})
	return f
}

func assertCounts(t *testing.T, items []models.Post) {
	t.Helper()
	for _, p := range items {
		assert.Equal(t, len(p.Likes), p.LikesCount, "likes_count of %s", p.ID)
	}
}

func TestToggleLike_LikeConfirmed(t *testing.T) {
	f := newFixture(t, post("p1"))

	p, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	assert.True(t, p.Liked)

	got, _ := f.coll.Get("p1")
	assert.Equal(t, []string{"0xA"}, got.Likes.Addresses())
	assert.Equal(t, 1, got.LikesCount)
	assert.True(t, got.IsLiked)

	optimistic := f.coll.Items()
	require.Equal(t, 1, f.exec.RunAll())
	require.NoError(t, p.Wait(context.Background()))

	assert.Empty(t, cmp.Diff(optimistic, f.coll.Items()))
	assert.Empty(t, f.notices.All())
	assert.Equal(t, []string{"p1/0xA"}, f.confirm.calls)
}

func TestToggleLike_FailureRestoresSnapshot(t *testing.T) {
	f := newFixture(t, post("p1"))
	before := f.coll.Items()
	f.confirm.results = []error{errDown}

	p, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	f.exec.RunAll()

	err = p.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfirmation))
	assert.True(t, errors.Is(err, errDown))
	var failure *ConfirmationFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "p1", failure.ItemID)
	assert.Equal(t, RollbackSnapshot, p.Rollback())

	assert.Empty(t, cmp.Diff(before, f.coll.Items()))

	notices := f.notices.All()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.LevelError, notices[0].Level)
	assert.Equal(t, "Failed to like post", notices[0].Message)
}

func TestToggleLike_UnlikePath(t *testing.T) {
	f := newFixture(t, post("p1", "0xA"))

	p, err := f.rec.ToggleLike(context.Background(), "p1", "0xa")
	require.NoError(t, err)
	assert.False(t, p.Liked)

	got, _ := f.coll.Get("p1")
	assert.Empty(t, got.Likes)
	assert.Equal(t, 0, got.LikesCount)
	assert.False(t, got.IsLiked)
	f.exec.RunAll()
}

func TestToggleLike_Isolation(t *testing.T) {
	for _, outcome := range []error{nil, errDown} {
		f := newFixture(t, post("p1"), post("p2", "0xB", "0xC"))
		other, _ := f.coll.Get("p2")
		f.confirm.results = []error{outcome}

		p, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
		require.NoError(t, err)
		during, _ := f.coll.Get("p2")
		f.exec.RunAll()
		_ = p.Wait(context.Background())
		after, _ := f.coll.Get("p2")

		assert.Empty(t, cmp.Diff(other, during))
		assert.Empty(t, cmp.Diff(other, after))
	}
}

func TestToggleLike_DoubleToggleReturnsToStart(t *testing.T) {
	f := newFixture(t, post("p1", "0xB"))
	start, _ := f.coll.Get("p1")

	first, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	second, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	f.exec.RunAll()
	require.NoError(t, first.Wait(context.Background()))
	require.NoError(t, second.Wait(context.Background()))

	end, _ := f.coll.Get("p1")
	assert.Equal(t, start.IsLiked, end.IsLiked)
	assert.Equal(t, start.LikesCount, end.LikesCount)
}

func TestToggleLike_CountMatchesLikesInEveryChange(t *testing.T) {
	f := newFixture(t, post("p1"), post("p2", "0xA"))
	changes, cancel := f.coll.Subscribe(16)
	f.confirm.results = []error{nil, errDown, errDown}

	for _, id := range []string{"p1", "p2", "p1"} {
		_, err := f.rec.ToggleLike(context.Background(), id, "0xA")
		require.NoError(t, err)
	}
	f.exec.RunAll()
	cancel()

	n := 0
	for change := range changes {
		assertCounts(t, change.Items)
		n++
	}
	// three applies, one confirmation, two rollbacks
	assert.Equal(t, 6, n)
}

func TestToggleLike_OverlapSameItem_FirstFailsSecondSucceeds(t *testing.T) {
	f := newFixture(t, post("p1"))
	f.confirm.results = []error{errDown, nil}

	like, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	unlike, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)

	f.exec.RunAll()
	require.Error(t, like.Wait(context.Background()))
	require.NoError(t, unlike.Wait(context.Background()))

	// Only the unlike toggle landed, so the net effect is one flip.
	assert.Equal(t, RollbackReverted, like.Rollback())
	got, _ := f.coll.Get("p1")
	assert.True(t, got.IsLiked)
	assert.Equal(t, 1, got.LikesCount)
}

func TestToggleLike_OverlapSameItem_BothFailInAnyOrder(t *testing.T) {
	for _, order := range [][]int{{0, 0}, {1, 0}} {
		f := newFixture(t, post("p1", "0xB"))
		before := f.coll.Items()
		f.confirm.results = []error{errDown, errDown}

		_, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
		require.NoError(t, err)
		_, err = f.rec.ToggleLike(context.Background(), "p1", "0xA")
		require.NoError(t, err)

		for _, i := range order {
			require.True(t, f.exec.RunAt(i))
		}

		got, _ := f.coll.Get("p1")
		want, _ := findPost(before, "p1")
		assert.Equal(t, want.IsLiked, got.IsLiked)
		assert.ElementsMatch(t, want.Likes, got.Likes)
		assert.Len(t, f.notices.All(), 2)
	}
}

func TestToggleLike_OverlapDifferentItems_OutOfOrderFailures(t *testing.T) {
	f := newFixture(t, post("p1"), post("p2", "0xA"))
	before := f.coll.Items()
	f.confirm.results = []error{errDown, errDown}

	first, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	second, err := f.rec.ToggleLike(context.Background(), "p2", "0xA")
	require.NoError(t, err)

	// second resolves first: its snapshot still holds p1's optimistic like
	require.True(t, f.exec.RunAt(1))
	assert.Equal(t, RollbackSnapshot, second.Rollback())
	p1, _ := f.coll.Get("p1")
	assert.True(t, p1.IsLiked)

	require.True(t, f.exec.RunNext())
	assert.Equal(t, RollbackReverted, first.Rollback())
	assert.Empty(t, cmp.Diff(before, f.coll.Items()))
}

func TestToggleLike_RefetchSupersedesRollback(t *testing.T) {
	f := newFixture(t, post("p1"))
	f.confirm.results = []error{errDown}

	p, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)

	fresh := []models.Post{post("p1", "0xZ"), post("p9")}
	f.coll.Replace(fresh)
	f.exec.RunAll()

	require.Error(t, p.Wait(context.Background()))
	assert.Equal(t, RollbackSuperseded, p.Rollback())
	assert.Empty(t, cmp.Diff(fresh, f.coll.Items()))
	// the user still hears about the failure
	assert.Len(t, f.notices.All(), 1)
}

func TestToggleLike_Guards(t *testing.T) {
	f := newFixture(t, post("p1"))

	_, err := f.rec.ToggleLike(context.Background(), "p1", "")
	assert.ErrorIs(t, err, ErrEmptyIdentity)

	_, err = f.rec.ToggleLike(context.Background(), "missing", "0xA")
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.Equal(t, 0, f.exec.Len())
	assert.Empty(t, f.confirm.calls)
}

func TestToggleLike_TimeoutRollsBack(t *testing.T) {
	coll := NewCollection[models.Post]()
	coll.Replace([]models.Post{post("p1")})
	before := coll.Items()
	exec := &GoExecutor{}

	blocking := ConfirmFunc(func(ctx context.Context, _, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	rec := New(coll, blocking, Options{Entity: "post", Executor: exec, Timeout: 20 * time.Millisecond})

	p, err := rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = p.Wait(ctx)
	exec.Wait()

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrConfirmation)
	assert.Empty(t, cmp.Diff(before, coll.Items()))
}

func TestToggleLike_Metrics(t *testing.T) {
	f := newFixture(t, post("p1"), post("p2"))
	f.confirm.results = []error{nil, errDown}

	_, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	_, err = f.rec.ToggleLike(context.Background(), "p2", "0xA")
	require.NoError(t, err)
	f.exec.RunAll()

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Mutations.WithLabelValues("post", "like", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Mutations.WithLabelValues("post", "like", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Mutations.WithLabelValues("post", "like", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rollbacks.WithLabelValues("post", "like", "snapshot")))
}

func TestRemove_FailurePutsItemBack(t *testing.T) {
	f := newFixture(t, post("p1"), post("p2"), post("p3"))
	before := f.coll.Items()
	confirmCalls := 0

	p, err := f.rec.Remove(context.Background(), "p2", func(context.Context) error {
		confirmCalls++
		return errDown
	})
	require.NoError(t, err)
	_, ok := f.coll.Get("p2")
	assert.False(t, ok)

	f.exec.RunAll()
	require.Error(t, p.Wait(context.Background()))
	assert.Equal(t, 1, confirmCalls)
	assert.Empty(t, cmp.Diff(before, f.coll.Items()))
	assert.Equal(t, "Failed to delete post", f.notices.All()[0].Message)
}

func TestRemove_FailureAfterOtherMutationReinsertsAtIndex(t *testing.T) {
	f := newFixture(t, post("p1"), post("p2"), post("p3"))

	removal, err := f.rec.Remove(context.Background(), "p2", func(context.Context) error { return errDown })
	require.NoError(t, err)
	_, err = f.rec.ToggleLike(context.Background(), "p3", "0xA")
	require.NoError(t, err)

	require.True(t, f.exec.RunNext())
	assert.Equal(t, RollbackReverted, removal.Rollback())

	var ids []string
	for _, p := range f.coll.Items() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
	p3, _ := f.coll.Get("p3")
	assert.True(t, p3.IsLiked)
	f.exec.RunAll()
}

func TestToggleLike_FailureWhileRemovedIsUndoneWhenRemovalFails(t *testing.T) {
	f := newFixture(t, post("p1"), post("p2"))
	before := f.coll.Items()
	f.confirm.results = []error{errDown}

	like, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	removal, err := f.rec.Remove(context.Background(), "p1", func(context.Context) error { return errDown })
	require.NoError(t, err)

	require.True(t, f.exec.RunNext())
	assert.Equal(t, RollbackDeferred, like.Rollback())
	_, ok := f.coll.Get("p1")
	assert.False(t, ok)

	require.True(t, f.exec.RunNext())
	assert.Equal(t, RollbackSnapshot, removal.Rollback())

	assert.Empty(t, cmp.Diff(before, f.coll.Items()))
	p1, _ := f.coll.Get("p1")
	assert.Empty(t, p1.Likes)
	assert.False(t, p1.IsLiked)
	assertCounts(t, f.coll.Items())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Rollbacks.WithLabelValues("post", "like", "deferred")))
}

func TestToggleLike_DeferredUndoSurvivesRevertedRemoval(t *testing.T) {
	f := newFixture(t, post("p1", "0xB"), post("p2"))
	before := f.coll.Items()
	f.confirm.results = []error{errDown, errDown}

	like, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	removal, err := f.rec.Remove(context.Background(), "p1", func(context.Context) error { return errDown })
	require.NoError(t, err)
	other, err := f.rec.ToggleLike(context.Background(), "p2", "0xA")
	require.NoError(t, err)

	f.exec.RunAll()
	assert.Equal(t, RollbackDeferred, like.Rollback())
	assert.Equal(t, RollbackReverted, removal.Rollback())
	assert.Equal(t, RollbackReverted, other.Rollback())

	assert.Empty(t, cmp.Diff(before, f.coll.Items()))
	assertCounts(t, f.coll.Items())
}

func TestToggleLike_DeferredUndoDroppedWhenRemovalConfirms(t *testing.T) {
	f := newFixture(t, post("p1"), post("p2"))
	f.confirm.results = []error{errDown}

	like, err := f.rec.ToggleLike(context.Background(), "p1", "0xA")
	require.NoError(t, err)
	removal, err := f.rec.Remove(context.Background(), "p1", func(context.Context) error { return nil })
	require.NoError(t, err)
	f.exec.RunAll()

	assert.Equal(t, RollbackDeferred, like.Rollback())
	require.NoError(t, removal.Wait(context.Background()))
	_, ok := f.coll.Get("p1")
	assert.False(t, ok)

	f.coll.Prepend(post("p1", "0xA"))
	p1, _ := f.coll.Get("p1")
	assert.Equal(t, []string{"0xA"}, p1.Likes.Addresses())
}

func TestRemove_Success(t *testing.T) {
	f := newFixture(t, post("p1"))

	p, err := f.rec.Remove(context.Background(), "p1", func(context.Context) error { return nil })
	require.NoError(t, err)
	f.exec.RunAll()

	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, 0, f.coll.Len())
}

func findPost(items []models.Post, id string) (models.Post, bool) {
	for _, p := range items {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}
