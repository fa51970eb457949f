package services

import (
	"context"
	"fmt"

	"clash-bot/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// EventKind names a lifecycle transition worth announcing.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventLocked  EventKind = "locked"
	EventResults EventKind = "results"
)

// PodiumPlace is a top-3 name and score used in social and messaging posts.
type PodiumPlace struct {
	Name  string
	Score float64
}

// Announcement is everything a sink needs to render one lifecycle event.
type Announcement struct {
	Kind             EventKind
	Tournament       models.Tournament
	ParticipantCount int64
	Results          []models.TournamentResult
	Podium           []PodiumPlace
}

// Sink is one outbound channel for announcements.
// A sink that is not Enabled is skipped without error.
type Sink interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, ann Announcement) error
}

// SinkOutcome records what happened to one sink during a dispatch.
type SinkOutcome struct {
	Sink    string
	Skipped bool
	Err     error
}

func (o SinkOutcome) Status() string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Err != nil:
		return "failed"
	default:
		return "sent"
	}
}

// Announcer fans one announcement out to every sink concurrently.
type Announcer struct {
	sinks   []Sink
	logger  *logrus.Logger
	metrics *Metrics
}

func NewAnnouncer(logger *logrus.Logger, metrics *Metrics, sinks ...Sink) *Announcer {
	return &Announcer{sinks: sinks, logger: logger, metrics: metrics}
}

// HasEnabledSink reports whether a dispatch would reach anything.
func (a *Announcer) HasEnabledSink() bool {
	for _, s := range a.sinks {
		if s.Enabled() {
			return true
		}
	}
	return false
}

// Dispatch sends ann to every enabled sink and waits for all of them.
// One sink failing, or panicking, never affects the others.
func (a *Announcer) Dispatch(ctx context.Context, ann Announcement) []SinkOutcome {
	outcomes := make([]SinkOutcome, len(a.sinks))

	var g errgroup.Group
	for i, sink := range a.sinks {
		if !sink.Enabled() {
			outcomes[i] = SinkOutcome{Sink: sink.Name(), Skipped: true}
			continue
		}
		g.Go(func() error {
			outcomes[i] = a.send(ctx, sink, ann)
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		a.metrics.SinkOutcome(ann.Kind, out)
		entry := a.logger.WithFields(logrus.Fields{
			"event":         ann.Kind,
			"sink":          out.Sink,
			"tournament_id": ann.Tournament.ID,
		})
		switch {
		case out.Err != nil:
			entry.WithError(out.Err).Warn("[Announce] sink failed")
		case out.Skipped:
			entry.Debug("[Announce] sink not configured, skipped")
		default:
			entry.Info("[Announce] ✅ sent")
		}
	}
	return outcomes
}

func (a *Announcer) send(ctx context.Context, sink Sink, ann Announcement) (out SinkOutcome) {
	out.Sink = sink.Name()
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("sink %s panicked: %v", out.Sink, r)
		}
	}()
	out.Err = sink.Send(ctx, ann)
	return out
}

// PodiumFromResults takes the first three results in rank order.
func PodiumFromResults(results []models.TournamentResult) []PodiumPlace {
	n := min(3, len(results))
	podium := make([]PodiumPlace, 0, n)
	for _, r := range results[:n] {
		podium = append(podium, PodiumPlace{Name: podiumName(r), Score: r.FinalScore})
	}
	return podium
}

func podiumName(r models.TournamentResult) string {
	switch {
	case r.PlayerName != "":
		return r.PlayerName
	case r.UserID != "":
		if len(r.UserID) > 8 {
			return r.UserID[:8]
		}
		return r.UserID
	default:
		return "Unknown"
	}
}
