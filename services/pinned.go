package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// PinnedAction says what a refresh did to the pinned standings message.
type PinnedAction string

const (
	PinnedSkipped PinnedAction = "skipped"
	PinnedEdited  PinnedAction = "edited"
	PinnedAdopted PinnedAction = "adopted"
	PinnedCreated PinnedAction = "created"
)

// PinnedStandings keeps one pinned standings message per channel up to date.
// The remembered message id is lost on restart; the pinned scan finds it again.
type PinnedStandings struct {
	chat        ChatClient
	leaderboard *LeaderboardService
	renderer    *EmbedRenderer
	clock       clockwork.Clock
	channelID   string
	logger      *logrus.Logger

	mu        sync.Mutex
	messageID string
}

func NewPinnedStandings(chat ChatClient, leaderboard *LeaderboardService, renderer *EmbedRenderer,
	clock clockwork.Clock, channelID string, logger *logrus.Logger) *PinnedStandings {
	return &PinnedStandings{
		chat:        chat,
		leaderboard: leaderboard,
		renderer:    renderer,
		clock:       clock,
		channelID:   channelID,
		logger:      logger,
	}
}

func (p *PinnedStandings) MessageID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messageID
}

// Refresh edits the remembered message, else adopts a pinned standings message
// written by this bot, else posts and pins a new one.
func (p *PinnedStandings) Refresh(ctx context.Context) (PinnedAction, error) {
	if p.chat == nil || p.channelID == "" {
		return PinnedSkipped, nil
	}
	st, err := p.leaderboard.Snapshot(ctx, p.clock.Now(), standingsRows)
	if err != nil {
		return PinnedSkipped, fmt.Errorf("pinned standings: %w", err)
	}
	if st == nil {
		p.logger.Debug("[Pinned] no active tournament, skipping")
		return PinnedSkipped, nil
	}
	embeds := p.renderer.Standings(st)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.messageID != "" {
		err := p.chat.EditEmbeds(ctx, p.channelID, p.messageID, embeds)
		if err == nil {
			return PinnedEdited, nil
		}
		p.logger.WithError(err).WithField("message_id", p.messageID).Warn("[Pinned] edit failed, searching pins")
		p.messageID = ""
	}

	if id := p.findPinned(ctx); id != "" {
		err := p.chat.EditEmbeds(ctx, p.channelID, id, embeds)
		if err == nil {
			p.messageID = id
			p.logger.WithField("message_id", id).Info("[Pinned] adopted existing pinned standings")
			return PinnedAdopted, nil
		}
		p.logger.WithError(err).WithField("message_id", id).Warn("[Pinned] could not edit pinned standings")
	}

	msg, err := p.chat.SendMessage(ctx, p.channelID, &discordgo.MessageSend{Embeds: embeds})
	if err != nil {
		return PinnedSkipped, fmt.Errorf("post standings: %w", err)
	}
	p.messageID = msg.ID
	if err := p.chat.PinMessage(ctx, p.channelID, msg.ID); err != nil {
		p.logger.WithError(err).WithField("message_id", msg.ID).Warn("[Pinned] posted standings but pin failed")
	}
	return PinnedCreated, nil
}

func (p *PinnedStandings) findPinned(ctx context.Context) string {
	pins, err := p.chat.PinnedMessages(ctx, p.channelID)
	if err != nil {
		p.logger.WithError(err).Warn("[Pinned] could not list pinned messages")
		return ""
	}
	self := p.chat.SelfID()
	for _, m := range pins {
		if m.Author == nil || m.Author.ID != self {
			continue
		}
		for _, e := range m.Embeds {
			if isStandingsEmbed(e) {
				return m.ID
			}
		}
	}
	return ""
}
