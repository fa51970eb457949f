package services

import (
	"context"
	"testing"
	"time"

	"clash-bot/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	now := day1.Add(36 * time.Hour)
	lock := day1.Add(24 * time.Hour)

	tests := []struct {
		name      string
		t         models.Tournament
		finalized bool
		want      Phase
	}{
		{"upcoming new", models.Tournament{Status: models.TournamentStatusUpcoming}, false, PhaseUpcomingUnannounced},
		{"upcoming announced", models.Tournament{Status: models.TournamentStatusUpcoming, AnnouncedCreation: true}, false, PhaseUpcomingAnnounced},
		{"active before lock", models.Tournament{Status: models.TournamentStatusActive, LockDate: now.Add(time.Hour)}, false, PhaseActiveUnlocked},
		{"active lock passed", models.Tournament{Status: models.TournamentStatusActive, LockDate: lock}, false, PhaseActiveLockedUnannounced},
		{"active lock exactly now", models.Tournament{Status: models.TournamentStatusActive, LockDate: now}, false, PhaseActiveLockedUnannounced},
		{"active lock announced", models.Tournament{Status: models.TournamentStatusActive, LockDate: lock, AnnouncedLock: true}, false, PhaseActiveLockedAnnounced},
		{"ended", models.Tournament{Status: models.TournamentStatusEnded}, false, PhaseEndedUnfinalized},
		{"ended finalized", models.Tournament{Status: models.TournamentStatusEnded}, true, PhaseEndedFinalized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.t, now, tt.finalized).Phase())
		})
	}
}

func TestClassifyVariants(t *testing.T) {
	state := Classify(models.Tournament{Status: models.TournamentStatusActive, LockDate: day1}, day1.Add(time.Hour), false)
	active, ok := state.(Active)
	require.True(t, ok)
	assert.True(t, active.Locked)
	assert.False(t, active.Announced)
}

func TestPendingCreatedSkipsAnnounced(t *testing.T) {
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "a", Status: models.TournamentStatusUpcoming, StartDate: day1},
		{ID: "b", Status: models.TournamentStatusUpcoming, StartDate: day1, AnnouncedCreation: true},
		{ID: "c", Status: models.TournamentStatusActive, StartDate: day1},
	}
	d := NewDetector(store, clockwork.NewFakeClockAt(day1), quietLogger())

	pending, err := d.PendingCreated(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)
}

func TestPendingLocked(t *testing.T) {
	clock := clockwork.NewFakeClockAt(day1)
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t1", Status: models.TournamentStatusActive, StartDate: day1, LockDate: day1.Add(time.Hour)},
	}
	d := NewDetector(store, clock, quietLogger())

	got, err := d.PendingLocked(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got, "lock date still ahead")

	clock.Advance(2 * time.Hour)
	got, err = d.PendingLocked(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ID)
}

func TestPendingLockedRefusesDuplicateActive(t *testing.T) {
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "x", Status: models.TournamentStatusActive, StartDate: day1, LockDate: day1},
		{ID: "y", Status: models.TournamentStatusActive, StartDate: day1.Add(time.Hour), LockDate: day1},
	}
	d := NewDetector(store, clockwork.NewFakeClockAt(day1.Add(48*time.Hour)), quietLogger())

	got, err := d.PendingLocked(context.Background())
	assert.ErrorIs(t, err, ErrMultipleActive)
	assert.Nil(t, got)
}

func TestRecentlyFinalizedWindow(t *testing.T) {
	now := day1.Add(10 * 24 * time.Hour)
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "fresh", Status: models.TournamentStatusEnded, EndDate: now.Add(-23 * time.Hour)},
		{ID: "stale", Status: models.TournamentStatusEnded, EndDate: now.Add(-25 * time.Hour)},
		{ID: "pending", Status: models.TournamentStatusEnded, EndDate: now.Add(-1 * time.Hour)},
	}
	store.ResultRows = []models.TournamentResult{
		{TournamentID: "fresh", FinalRank: 1},
		{TournamentID: "stale", FinalRank: 1},
	}
	d := NewDetector(store, clockwork.NewFakeClockAt(now), quietLogger())

	got, err := d.RecentlyFinalized(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
}

func TestPendingResultsOncePerProcess(t *testing.T) {
	now := day1.Add(10 * 24 * time.Hour)
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "done", Status: models.TournamentStatusEnded, EndDate: now.Add(-time.Hour)},
	}
	store.ResultRows = []models.TournamentResult{{TournamentID: "done", FinalRank: 1}}
	d := NewDetector(store, clockwork.NewFakeClockAt(now), quietLogger())

	pending, err := d.PendingResults(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	d.MarkResultsPosted("done")
	pending, err = d.PendingResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// ------------------------
// Lifecycle ticks
// ------------------------

func newLifecycle(store *FakeStore, clock clockwork.Clock, sinks ...Sink) *LifecycleService {
	logger := quietLogger()
	return NewLifecycleService(NewDetector(store, clock, logger), store, NewAnnouncer(logger, nil, sinks...), logger)
}

func TestCheckCreatedAnnouncesOnce(t *testing.T) {
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t9", Name: "Week 9", Status: models.TournamentStatusUpcoming, StartDate: day1},
	}
	sink := &FakeSink{SinkName: "fake"}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(day1.Add(-time.Hour)), sink)

	n, err := svc.CheckCreated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.TournamentRows[0].AnnouncedCreation)

	n, err = svc.CheckCreated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, sink.Calls())
	assert.Equal(t, EventCreated, sink.Received[0].Kind)
}

func TestCheckCreatedFlagsEvenWhenSinkFails(t *testing.T) {
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t9", Status: models.TournamentStatusUpcoming, StartDate: day1},
	}
	sink := &FakeSink{SinkName: "fake", SendFunc: func(context.Context, Announcement) error { return errBoom }}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(day1), sink)

	_, err := svc.CheckCreated(context.Background())
	require.NoError(t, err)
	assert.True(t, store.TournamentRows[0].AnnouncedCreation)
}

func TestCheckCreatedFlagWriteFailureRepeats(t *testing.T) {
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t9", Status: models.TournamentStatusUpcoming, StartDate: day1},
	}
	store.MarkAnnouncedFunc = func(context.Context, string, EventKind) error { return errBoom }
	sink := &FakeSink{SinkName: "fake"}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(day1), sink)

	_, err := svc.CheckCreated(context.Background())
	assert.ErrorIs(t, err, errBoom)
	_, err = svc.CheckCreated(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, sink.Calls())
}

func TestChecksSkippedWithoutEnabledSink(t *testing.T) {
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t9", Status: models.TournamentStatusUpcoming, StartDate: day1},
	}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(day1), &FakeSink{SinkName: "off", Off: true})

	require.NoError(t, svc.Tick(context.Background()))
	assert.False(t, store.TournamentRows[0].AnnouncedCreation)
	assert.Empty(t, store.Trace())
}

func TestCheckLockedCarriesParticipantCount(t *testing.T) {
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t1", Status: models.TournamentStatusActive, StartDate: day1, LockDate: day1.Add(time.Hour)},
	}
	store.ParticipantRows = []models.TournamentParticipant{
		{TournamentID: "t1", UserID: "0x1"}, {TournamentID: "t1", UserID: "0x2"},
	}
	sink := &FakeSink{SinkName: "fake"}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(day1.Add(2*time.Hour)), sink)

	announced, err := svc.CheckLocked(context.Background())
	require.NoError(t, err)
	assert.True(t, announced)
	assert.True(t, store.TournamentRows[0].AnnouncedLock)
	require.Equal(t, 1, sink.Calls())
	assert.EqualValues(t, 2, sink.Received[0].ParticipantCount)

	announced, err = svc.CheckLocked(context.Background())
	require.NoError(t, err)
	assert.False(t, announced)
}

func TestCheckFinalizedPostsPodium(t *testing.T) {
	now := day1.Add(8 * 24 * time.Hour)
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t1", Name: "Week 1", Status: models.TournamentStatusEnded, EndDate: now.Add(-2 * time.Hour)},
	}
	store.ResultRows = []models.TournamentResult{
		{TournamentID: "t1", UserID: "0x3333333333", FinalRank: 3, FinalScore: 10},
		{TournamentID: "t1", UserID: "0x1", PlayerName: "Alice", FinalRank: 1, FinalScore: 30},
		{TournamentID: "t1", UserID: "0x2", PlayerName: "Bob", FinalRank: 2, FinalScore: 20},
	}
	sink := &FakeSink{SinkName: "fake"}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(now), sink)

	n, err := svc.CheckFinalized(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, sink.Calls())
	assert.Equal(t, []PodiumPlace{{"Alice", 30}, {"Bob", 20}, {"0x333333", 10}}, sink.Received[0].Podium)

	n, err = svc.CheckFinalized(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTickRunsAllChecksDespiteErrors(t *testing.T) {
	now := day1.Add(8 * 24 * time.Hour)
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t1", Status: models.TournamentStatusEnded, EndDate: now.Add(-time.Hour)},
	}
	store.ResultRows = []models.TournamentResult{{TournamentID: "t1", FinalRank: 1}}
	store.UpcomingFunc = func(context.Context) ([]models.Tournament, error) { return nil, errBoom }
	sink := &FakeSink{SinkName: "fake"}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(now), sink)

	err := svc.Tick(context.Background())
	assert.ErrorIs(t, err, errBoom)
	require.Equal(t, 1, sink.Calls())
	assert.Equal(t, EventResults, sink.Received[0].Kind)
}

func TestOverlappingTicksAnnounceOnce(t *testing.T) {
	now := day1.Add(8 * 24 * time.Hour)
	store := NewFakeStore()
	store.TournamentRows = []models.Tournament{
		{ID: "t1", Name: "Week 1", Status: models.TournamentStatusEnded, EndDate: now.Add(-time.Hour)},
	}
	store.ResultRows = []models.TournamentResult{{TournamentID: "t1", FinalRank: 1, FinalScore: 30}}

	started := make(chan struct{})
	release := make(chan struct{})
	sink := &FakeSink{SinkName: "slow", SendFunc: func(context.Context, Announcement) error {
		close(started)
		<-release
		return nil
	}}
	svc := newLifecycle(store, clockwork.NewFakeClockAt(now), sink)

	first := make(chan error, 1)
	go func() { first <- svc.Tick(context.Background()) }()
	<-started

	assert.ErrorIs(t, svc.Tick(context.Background()), ErrTickInProgress)

	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, 1, sink.Calls())

	require.NoError(t, svc.Tick(context.Background()))
	assert.Equal(t, 1, sink.Calls())
}
