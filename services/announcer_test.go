package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"clash-bot/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchIsolatesFailures(t *testing.T) {
	chat := &FakeSink{SinkName: "discord"}
	social := &FakeSink{SinkName: "social", SendFunc: func(context.Context, Announcement) error { return errBoom }}
	messaging := &FakeSink{SinkName: "telegram"}
	a := NewAnnouncer(quietLogger(), nil, chat, social, messaging)

	outcomes := a.Dispatch(context.Background(), Announcement{Kind: EventCreated, Tournament: models.Tournament{ID: "t1"}})

	require.Len(t, outcomes, 3)
	assert.Equal(t, "sent", outcomes[0].Status())
	assert.Equal(t, "failed", outcomes[1].Status())
	assert.ErrorIs(t, outcomes[1].Err, errBoom)
	assert.Equal(t, "sent", outcomes[2].Status())
	assert.Equal(t, 1, messaging.Calls())
}

func TestDispatchRecoversPanics(t *testing.T) {
	bad := &FakeSink{SinkName: "bad", SendFunc: func(context.Context, Announcement) error { panic("nil map") }}
	good := &FakeSink{SinkName: "good"}
	a := NewAnnouncer(quietLogger(), nil, bad, good)

	outcomes := a.Dispatch(context.Background(), Announcement{Kind: EventLocked})

	assert.Equal(t, "failed", outcomes[0].Status())
	assert.Contains(t, outcomes[0].Err.Error(), "panicked")
	assert.Equal(t, "sent", outcomes[1].Status())
}

func TestDispatchSkipsDisabledSinks(t *testing.T) {
	off := &FakeSink{SinkName: "off", Off: true}
	a := NewAnnouncer(quietLogger(), nil, off)

	outcomes := a.Dispatch(context.Background(), Announcement{Kind: EventResults})

	assert.True(t, outcomes[0].Skipped)
	assert.Zero(t, off.Calls())
	assert.False(t, a.HasEnabledSink())
}

func TestDispatchRunsSinksConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := func(context.Context, Announcement) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	a := NewAnnouncer(quietLogger(), nil,
		&FakeSink{SinkName: "a", SendFunc: slow},
		&FakeSink{SinkName: "b", SendFunc: slow},
	)

	a.Dispatch(context.Background(), Announcement{Kind: EventCreated})

	assert.EqualValues(t, 2, peak.Load())
}

func TestDispatchCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	a := NewAnnouncer(quietLogger(), metrics,
		&FakeSink{SinkName: "discord"},
		&FakeSink{SinkName: "social", SendFunc: func(context.Context, Announcement) error { return errBoom }},
	)

	a.Dispatch(context.Background(), Announcement{Kind: EventCreated})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.announcements.WithLabelValues("created", "discord", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.announcements.WithLabelValues("created", "social", "failed")))
}

func TestPodiumFromResults(t *testing.T) {
	podium := PodiumFromResults([]models.TournamentResult{
		{PlayerName: "Alice", FinalScore: 9},
		{UserID: "0xabcdef1234", FinalScore: 8},
		{FinalScore: 7},
		{PlayerName: "Dave", FinalScore: 6},
	})

	assert.Equal(t, []PodiumPlace{{"Alice", 9}, {"0xabcdef", 8}, {"Unknown", 7}}, podium)
	assert.Empty(t, PodiumFromResults(nil))
}
