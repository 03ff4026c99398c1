package rsvp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
	"github.com/gamemaster-scheduling/pickup/internal/games"
	"github.com/gamemaster-scheduling/pickup/internal/models"
	"github.com/gamemaster-scheduling/pickup/internal/testutil"
)

const organizerID = 1

var testNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db     *sqlx.DB
	clock  *testutil.Clock
	games  *games.Service
	engine *Engine
}

// newFixture mirrors users 1..users; user 1 organizes every game.
func newFixture(t *testing.T, users int) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.OpenDB(t), users)
}

func newFixtureOn(t *testing.T, db *sqlx.DB, users int) *fixture {
	t.Helper()
	ids := make([]int64, users)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	testutil.CreateUsers(t, db, ids...)

	clock := testutil.NewClock(testNow)
	return &fixture{
		db:     db,
		clock:  clock,
		games:  games.NewService(db, games.WithClock(clock.Now)),
		engine: NewEngine(db, WithClock(clock.Now)),
	}
}

func (f *fixture) game(t *testing.T, capacity int) *models.Game {
	t.Helper()
	g, err := f.games.Create(context.Background(), organizerID, games.GameInput{
		Title:       "Evening Run",
		SportType:   "Soccer",
		Location:    "Field 3",
		ScheduledAt: testNow.Add(24 * time.Hour).Format(time.RFC3339),
		Timezone:    "UTC",
		MaxCapacity: capacity,
	})
	require.NoError(t, err)
	return g
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

func TestCreate(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	g := f.game(t, 5)

	r, err := f.engine.Create(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPStatusGoing, r.Status)
	assert.Equal(t, g.ID, r.GameID)
	assert.Equal(t, int64(2), r.UserID)
	assert.Equal(t, "user2", r.UserName)
	assert.Equal(t, "user2@example.com", r.UserEmail)

	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 1, got.CurrentCapacity)

	t.Run("duplicate is a conflict", func(t *testing.T) {
		_, err := f.engine.Create(ctx, g.ID, 2)
		requireKind(t, err, apperr.KindConflict)
		testutil.RequireCapacityInvariant(t, f.db, g.ID)
	})

	t.Run("organizer cannot rsvp", func(t *testing.T) {
		_, err := f.engine.Create(ctx, g.ID, organizerID)
		requireKind(t, err, apperr.KindConflict)
	})

	t.Run("missing game", func(t *testing.T) {
		_, err := f.engine.Create(ctx, g.ID+100, 3)
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := f.engine.Create(ctx, g.ID, 99)
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("rsvp again after withdrawing", func(t *testing.T) {
		r3, err := f.engine.Create(ctx, g.ID, 3)
		require.NoError(t, err)
		_, err = f.engine.Delete(ctx, r3.ID)
		require.NoError(t, err)
		_, err = f.engine.Create(ctx, g.ID, 3)
		require.NoError(t, err)
		got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
		assert.Equal(t, 2, got.CurrentCapacity)
	})
}

// Capacity 3, two going, a third user takes the last seat and a fourth is turned away.
func TestScenarioFillLastSeat(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	g := f.game(t, 3)

	for _, u := range []int64{2, 3, 4} {
		_, err := f.engine.Create(ctx, g.ID, u)
		require.NoError(t, err)
	}
	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 3, got.CurrentCapacity)
	assert.True(t, got.IsFull())

	_, err := f.engine.Create(ctx, g.ID, 5)
	requireKind(t, err, apperr.KindConflict)
	assert.Contains(t, err.Error(), "full")

	got = testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 3, got.CurrentCapacity)
}

// Going to maybe frees a seat; maybe back to going takes it again, or fails when
// someone else took it in between.
func TestScenarioStatusFlip(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	g := f.game(t, 2)

	r2, err := f.engine.Create(ctx, g.ID, 2)
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, g.ID, 3)
	require.NoError(t, err)

	updated, err := f.engine.UpdateStatus(ctx, r2.ID, "maybe")
	require.NoError(t, err)
	assert.Equal(t, models.RSVPStatusMaybe, updated.Status)
	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 1, got.CurrentCapacity)

	// maybe -> not_going leaves capacity alone
	_, err = f.engine.UpdateStatus(ctx, r2.ID, "not_going")
	require.NoError(t, err)
	got = testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 1, got.CurrentCapacity)

	_, err = f.engine.Create(ctx, g.ID, 4)
	require.NoError(t, err)

	_, err = f.engine.UpdateStatus(ctx, r2.ID, "going")
	requireKind(t, err, apperr.KindConflict)
	after, err := f.engine.Get(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPStatusNotGoing, after.Status)
	testutil.RequireCapacityInvariant(t, f.db, g.ID)
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	g := f.game(t, 4)

	r, err := f.engine.Create(ctx, g.ID, 2)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	again, err := f.engine.UpdateStatus(ctx, r.ID, "going")
	require.NoError(t, err)
	assert.Equal(t, models.RSVPStatusGoing, again.Status)
	assert.True(t, again.UpdatedAt.Equal(r.UpdatedAt), "same-status update must not write")

	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 1, got.CurrentCapacity)
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	g := f.game(t, 4)
	r, err := f.engine.Create(ctx, g.ID, 2)
	require.NoError(t, err)

	_, err = f.engine.UpdateStatus(ctx, r.ID, "attending")
	requireKind(t, err, apperr.KindInvalidInput)

	_, err = f.engine.UpdateStatus(ctx, r.ID+100, "maybe")
	requireKind(t, err, apperr.KindNotFound)
}

// Deleting a going RSVP frees its seat; deleting a maybe RSVP does not touch capacity.
func TestScenarioDelete(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	g := f.game(t, 4)

	going, err := f.engine.Create(ctx, g.ID, 2)
	require.NoError(t, err)
	maybe, err := f.engine.Create(ctx, g.ID, 3)
	require.NoError(t, err)
	_, err = f.engine.UpdateStatus(ctx, maybe.ID, "maybe")
	require.NoError(t, err)

	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 1, got.CurrentCapacity)

	deleted, err := f.engine.Delete(ctx, maybe.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPStatusMaybe, deleted.Status)
	got = testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 1, got.CurrentCapacity)

	deleted, err = f.engine.Delete(ctx, going.ID)
	require.NoError(t, err)
	assert.Equal(t, going.ID, deleted.ID)
	assert.Equal(t, "user2", deleted.UserName)
	got = testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 0, got.CurrentCapacity)

	_, err = f.engine.Delete(ctx, going.ID)
	requireKind(t, err, apperr.KindNotFound)
	_, err = f.engine.Get(ctx, going.ID)
	requireKind(t, err, apperr.KindNotFound)
}

// Once the scheduled time is reached every RSVP change is refused.
func TestScenarioGameStarted(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	g := f.game(t, 4)

	r, err := f.engine.Create(ctx, g.ID, 2)
	require.NoError(t, err)

	f.clock.Set(g.ScheduledAt)

	_, err = f.engine.Create(ctx, g.ID, 3)
	requireKind(t, err, apperr.KindInvalidState)
	assert.Contains(t, err.Error(), g.ScheduledAt.UTC().Format(time.RFC3339))

	_, err = f.engine.UpdateStatus(ctx, r.ID, "maybe")
	requireKind(t, err, apperr.KindInvalidState)

	_, err = f.engine.Delete(ctx, r.ID)
	requireKind(t, err, apperr.KindInvalidState)

	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 1, got.CurrentCapacity)
}

// Two players race for the last seat: exactly one wins.
func TestScenarioLastSeatRace(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	g := f.game(t, 2)
	_, err := f.engine.Create(ctx, g.ID, 2)
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, u := range []int64{3, 4} {
		wg.Add(1)
		go func(i int, u int64) {
			defer wg.Done()
			<-start
			_, errs[i] = f.engine.Create(ctx, g.ID, u)
		}(i, u)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.Equal(t, 2, got.CurrentCapacity)
}

func TestConcurrentMutationsKeepInvariant(t *testing.T) {
	const players = 12
	f := newFixture(t, players+1)
	ctx := context.Background()
	g := f.game(t, 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var created []*models.RSVP
	for u := int64(2); u <= players+1; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			r, err := f.engine.Create(ctx, g.ID, u)
			if err != nil {
				assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "error: %v", err)
				return
			}
			mu.Lock()
			created = append(created, r)
			mu.Unlock()
		}(u)
	}
	wg.Wait()
	require.Len(t, created, 5)
	testutil.RequireCapacityInvariant(t, f.db, g.ID)

	// flip every winner back and forth while newcomers try to grab freed seats
	for _, r := range created {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for _, st := range []string{"maybe", "going", "not_going"} {
				if _, err := f.engine.UpdateStatus(ctx, id, st); err != nil {
					assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "error: %v", err)
				}
			}
		}(r.ID)
	}
	for u := int64(7); u <= players+1; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			if _, err := f.engine.Create(ctx, g.ID, u); err != nil {
				assert.Equal(t, apperr.KindConflict, apperr.KindOf(err), "error: %v", err)
			}
		}(u)
	}
	wg.Wait()

	got := testutil.RequireCapacityInvariant(t, f.db, g.ID)
	assert.LessOrEqual(t, got.CurrentCapacity, 5)
}

func TestListForGame(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	g := f.game(t, 6)

	for _, u := range []int64{3, 2, 4} {
		_, err := f.engine.Create(ctx, g.ID, u)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	rsvps, err := f.engine.ListForGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, rsvps, 3)
	assert.Equal(t, int64(3), rsvps[0].UserID)
	assert.Equal(t, int64(2), rsvps[1].UserID)
	assert.Equal(t, int64(4), rsvps[2].UserID)

	_, err = f.engine.ListForGame(ctx, g.ID+100)
	requireKind(t, err, apperr.KindNotFound)
}

func TestCapacityEditAgainstGoingCount(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	g := f.game(t, 4)
	for _, u := range []int64{2, 3, 4} {
		_, err := f.engine.Create(ctx, g.ID, u)
		require.NoError(t, err)
	}

	two := 2
	_, err := f.games.Update(ctx, organizerID, g.ID, games.GamePatch{MaxCapacity: &two})
	requireKind(t, err, apperr.KindConflict)

	three := 3
	updated, err := f.games.Update(ctx, organizerID, g.ID, games.GamePatch{MaxCapacity: &three})
	require.NoError(t, err)
	assert.True(t, updated.IsFull())
	testutil.RequireCapacityInvariant(t, f.db, g.ID)
}
