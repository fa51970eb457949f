package services

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ErrNoActiveTournament is returned when a standings post is requested without an active tournament.
var ErrNoActiveTournament = errors.New("no active tournament")

// StandingsReporter posts a fresh (unpinned) standings card to a channel.
type StandingsReporter struct {
	chat        ChatClient
	leaderboard *LeaderboardService
	renderer    *EmbedRenderer
	clock       clockwork.Clock
	logger      *logrus.Logger
}

func NewStandingsReporter(chat ChatClient, leaderboard *LeaderboardService, renderer *EmbedRenderer,
	clock clockwork.Clock, logger *logrus.Logger) *StandingsReporter {
	return &StandingsReporter{chat: chat, leaderboard: leaderboard, renderer: renderer, clock: clock, logger: logger}
}

func (r *StandingsReporter) Post(ctx context.Context, channelID string) error {
	if r.chat == nil || channelID == "" {
		return nil
	}
	st, err := r.leaderboard.Snapshot(ctx, r.clock.Now(), standingsRows)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrNoActiveTournament
	}
	if _, err := r.chat.SendMessage(ctx, channelID, &discordgo.MessageSend{Embeds: r.renderer.Standings(st)}); err != nil {
		return err
	}
	r.logger.WithField("channel_id", channelID).Info("[Standings] posted")
	return nil
}
