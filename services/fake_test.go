package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"clash-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// ------------------------
// Fake Store
// ------------------------

// FakeStore is an in-memory Store. Func hooks override the default behaviour.
type FakeStore struct {
	mu    sync.Mutex
	trace []string

	TournamentRows  []models.Tournament
	ScoreRows       []models.TournamentHourlyScore
	ParticipantRows []models.TournamentParticipant
	PlayerRows      []models.Player
	ResultRows      []models.TournamentResult

	ActiveTournamentFunc func(ctx context.Context) (*models.Tournament, error)
	UpcomingFunc         func(ctx context.Context) ([]models.Tournament, error)
	CountResultsFunc     func(ctx context.Context, tournamentID string) (int64, error)
	HourlyScoresFunc     func(ctx context.Context, tournamentID string) ([]models.TournamentHourlyScore, error)
	ResultsFunc          func(ctx context.Context, tournamentID string, limit int) ([]models.TournamentResult, error)
	MarkAnnouncedFunc    func(ctx context.Context, tournamentID string, kind EventKind) error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{trace: []string{}}
}

func (f *FakeStore) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeStore) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeStore) byStatus(status models.TournamentStatus) []models.Tournament {
	var out []models.Tournament
	for _, t := range f.TournamentRows {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (f *FakeStore) ActiveTournament(ctx context.Context) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ActiveTournament")
	if f.ActiveTournamentFunc != nil {
		return f.ActiveTournamentFunc(ctx)
	}
	active := f.byStatus(models.TournamentStatusActive)
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return &active[0], nil
	default:
		return &active[0], fmt.Errorf("%w: %s and %s", ErrMultipleActive, active[0].ID, active[1].ID)
	}
}

func (f *FakeStore) UpcomingTournaments(ctx context.Context) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpcomingTournaments")
	if f.UpcomingFunc != nil {
		return f.UpcomingFunc(ctx)
	}
	return f.byStatus(models.TournamentStatusUpcoming), nil
}

func (f *FakeStore) Tournament(_ context.Context, id string) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Tournament")
	for _, t := range f.TournamentRows {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, ErrTournamentNotFound
}

func (f *FakeStore) EndedSince(_ context.Context, cutoff time.Time) ([]models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EndedSince")
	var out []models.Tournament
	for _, t := range f.TournamentRows {
		if t.Status == models.TournamentStatusEnded && !t.EndDate.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out, nil
}

func (f *FakeStore) CountResults(ctx context.Context, tournamentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountResults")
	if f.CountResultsFunc != nil {
		return f.CountResultsFunc(ctx, tournamentID)
	}
	var n int64
	for _, r := range f.ResultRows {
		if r.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (f *FakeStore) CountParticipants(_ context.Context, tournamentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountParticipants")
	var n int64
	for _, p := range f.ParticipantRows {
		if p.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (f *FakeStore) HourlyScores(ctx context.Context, tournamentID string) ([]models.TournamentHourlyScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("HourlyScores")
	if f.HourlyScoresFunc != nil {
		return f.HourlyScoresFunc(ctx, tournamentID)
	}
	var out []models.TournamentHourlyScore
	for _, s := range f.ScoreRows {
		if s.TournamentID == tournamentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FakeStore) Participants(_ context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Participants")
	var out []models.TournamentParticipant
	for _, p := range f.ParticipantRows {
		if p.TournamentID == tournamentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *FakeStore) PlayerNames(_ context.Context, lowerIDs []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PlayerNames")
	want := make(map[string]bool, len(lowerIDs))
	for _, id := range lowerIDs {
		want[id] = true
	}
	names := make(map[string]string)
	for _, p := range f.PlayerRows {
		if id := strings.ToLower(p.UserID); want[id] && p.PlayerName != "" {
			names[id] = p.PlayerName
		}
	}
	return names, nil
}

func (f *FakeStore) Results(ctx context.Context, tournamentID string, limit int) ([]models.TournamentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Results")
	if f.ResultsFunc != nil {
		return f.ResultsFunc(ctx, tournamentID, limit)
	}
	var out []models.TournamentResult
	for _, r := range f.ResultRows {
		if r.TournamentID == tournamentID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalRank < out[j].FinalRank })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeStore) MarkAnnounced(ctx context.Context, tournamentID string, kind EventKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MarkAnnounced:" + string(kind))
	if f.MarkAnnouncedFunc != nil {
		return f.MarkAnnouncedFunc(ctx, tournamentID, kind)
	}
	for i := range f.TournamentRows {
		if f.TournamentRows[i].ID != tournamentID {
			continue
		}
		switch kind {
		case EventCreated:
			f.TournamentRows[i].AnnouncedCreation = true
		case EventLocked:
			f.TournamentRows[i].AnnouncedLock = true
		default:
			return fmt.Errorf("no durable flag for %q events", kind)
		}
		return nil
	}
	return ErrTournamentNotFound
}

// ------------------------
// Fake Chat
// ------------------------

type sentMessage struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

type FakeChat struct {
	mu     sync.Mutex
	trace  []string
	nextID int

	Self   string
	Sent   []sentMessage
	Edits  map[string][]*discordgo.MessageEmbed
	Pinned []string

	SendMessageFunc    func(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditEmbedsFunc     func(ctx context.Context, channelID, messageID string, embeds []*discordgo.MessageEmbed) error
	PinnedMessagesFunc func(ctx context.Context, channelID string) ([]*discordgo.Message, error)
	PinMessageFunc     func(ctx context.Context, channelID, messageID string) error
}

func NewFakeChat() *FakeChat {
	return &FakeChat{trace: []string{}, Self: "bot-self", Edits: map[string][]*discordgo.MessageEmbed{}}
}

func (f *FakeChat) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeChat) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeChat) SelfID() string { return f.Self }

func (f *FakeChat) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendMessage:" + channelID)
	if f.SendMessageFunc != nil {
		return f.SendMessageFunc(ctx, channelID, msg)
	}
	f.nextID++
	f.Sent = append(f.Sent, sentMessage{ChannelID: channelID, Message: msg})
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", f.nextID), ChannelID: channelID}, nil
}

func (f *FakeChat) EditEmbeds(ctx context.Context, channelID, messageID string, embeds []*discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EditEmbeds:" + messageID)
	if f.EditEmbedsFunc != nil {
		return f.EditEmbedsFunc(ctx, channelID, messageID, embeds)
	}
	f.Edits[messageID] = embeds
	return nil
}

func (f *FakeChat) PinnedMessages(ctx context.Context, channelID string) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PinnedMessages")
	if f.PinnedMessagesFunc != nil {
		return f.PinnedMessagesFunc(ctx, channelID)
	}
	return nil, nil
}

func (f *FakeChat) PinMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PinMessage:" + messageID)
	if f.PinMessageFunc != nil {
		return f.PinMessageFunc(ctx, channelID, messageID)
	}
	f.Pinned = append(f.Pinned, messageID)
	return nil
}

// ------------------------
// Fake Sink
// ------------------------

type FakeSink struct {
	mu sync.Mutex

	SinkName string
	Off      bool
	Received []Announcement
	SendFunc func(ctx context.Context, ann Announcement) error
}

func (f *FakeSink) Name() string  { return f.SinkName }
func (f *FakeSink) Enabled() bool { return !f.Off }

func (f *FakeSink) Send(ctx context.Context, ann Announcement) error {
	f.mu.Lock()
	f.Received = append(f.Received, ann)
	fn := f.SendFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, ann)
	}
	return nil
}

func (f *FakeSink) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Received)
}

var errBoom = errors.New("boom")
