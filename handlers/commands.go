package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clash-bot/models"
	"clash-bot/services"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	standingsLimit = 25
	commandTimeout = 10 * time.Second
)

// Definitions are the tournament bot's slash commands.
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "standings", Description: "View current tournament standings"},
		{Name: "tournament", Description: "View active tournament info"},
		{Name: "results", Description: "View most recent tournament results"},
		{Name: "prizes", Description: "View tournament prize structure"},
		{
			Name:        "mystats",
			Description: "Check your tournament position",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "wallet",
				Description: "Your wallet address",
				Required:    true,
			}},
		},
	}
}

// CommandHandler answers slash commands from the tournament read model.
type CommandHandler struct {
	leaderboard *services.LeaderboardService
	detector    *services.Detector
	store       services.Store
	renderer    *services.EmbedRenderer
	clock       clockwork.Clock
	logger      *logrus.Logger
}

func NewCommandHandler(leaderboard *services.LeaderboardService, detector *services.Detector, store services.Store,
	renderer *services.EmbedRenderer, clock clockwork.Clock, logger *logrus.Logger) *CommandHandler {
	return &CommandHandler{
		leaderboard: leaderboard,
		detector:    detector,
		store:       store,
		renderer:    renderer,
		clock:       clock,
		logger:      logger,
	}
}

// Reply is a command's answer; exactly one of Content or Embeds is set.
type Reply struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

func text(s string) Reply { return Reply{Content: s} }

func embeds(e ...*discordgo.MessageEmbed) Reply { return Reply{Embeds: e} }

// Respond computes the reply for a command. Unknown commands yield an empty reply.
func (h *CommandHandler) Respond(ctx context.Context, name string, opts map[string]string) Reply {
	log := h.logger.WithField("command", name)
	switch name {
	case "standings":
		st, err := h.leaderboard.Snapshot(ctx, h.clock.Now(), standingsLimit)
		if err != nil {
			log.WithError(err).Error("[Commands] standings failed")
			return text("Failed to fetch standings.")
		}
		if st == nil {
			return text("No active tournament right now.")
		}
		return embeds(h.renderer.Standings(st)...)

	case "tournament":
		return h.tournament(ctx, log)

	case "results":
		finalized, err := h.detector.RecentlyFinalized(ctx)
		if err != nil {
			log.WithError(err).Error("[Commands] results failed")
			return text("Failed to fetch results.")
		}
		if len(finalized) == 0 {
			return text("No recently finalized tournaments.")
		}
		t := finalized[0]
		results, err := h.store.Results(ctx, t.ID, services.ResultsLimit)
		if err != nil {
			log.WithError(err).Error("[Commands] results failed")
			return text("Failed to fetch results.")
		}
		return embeds(h.renderer.Results(t, results)...)

	case "prizes":
		t, err := h.leaderboard.ActiveTournament(ctx)
		if err != nil {
			log.WithError(err).Error("[Commands] prizes failed")
			return Reply{Content: "Failed to fetch prizes.", Ephemeral: true}
		}
		prizes := models.DefaultPrizes()
		if t != nil {
			prizes = t.PrizeTable()
		}
		return embeds(h.renderer.Prizes(prizes))

	case "mystats":
		r := h.myStats(ctx, strings.TrimSpace(opts["wallet"]), log)
		r.Ephemeral = true
		return r
	}
	return Reply{}
}

func (h *CommandHandler) tournament(ctx context.Context, log *logrus.Entry) Reply {
	st, err := h.leaderboard.Snapshot(ctx, h.clock.Now(), standingsLimit)
	if err != nil {
		log.WithError(err).Error("[Commands] tournament failed")
		return text("Failed to fetch tournament info.")
	}
	if st != nil {
		return embeds(h.renderer.TournamentInfo(st))
	}

	upcoming, err := h.store.UpcomingTournaments(ctx)
	if err != nil {
		log.WithError(err).Error("[Commands] tournament failed")
		return text("Failed to fetch tournament info.")
	}
	if len(upcoming) == 0 {
		return text("No active or upcoming tournaments.")
	}
	next := upcoming[0]
	return text(fmt.Sprintf("No active tournament. Next: **%s** starts <t:%d:R>", next.Name, next.StartDate.Unix()))
}

func (h *CommandHandler) myStats(ctx context.Context, wallet string, log *logrus.Entry) Reply {
	if wallet == "" {
		return text("Please provide a wallet address.")
	}
	t, err := h.leaderboard.ActiveTournament(ctx)
	if err != nil {
		log.WithError(err).Error("[Commands] mystats failed")
		return text("Failed to fetch stats.")
	}
	if t == nil {
		return text("No active tournament.")
	}
	entry, err := h.leaderboard.GetPlayerStats(ctx, t.ID, wallet)
	if err != nil {
		log.WithError(err).Error("[Commands] mystats failed")
		return text("Failed to fetch stats.")
	}
	if entry == nil {
		return text("Wallet not found in current tournament.")
	}
	count, err := h.store.CountParticipants(ctx, t.ID)
	if err != nil {
		log.WithError(err).Warn("[Commands] participant count unavailable")
	}
	return embeds(h.renderer.PlayerStats(*entry, t.Name, count))
}

// answeredDirectly lists commands that reply in one step instead of deferring.
var answeredDirectly = map[string]bool{"prizes": true}

func messageFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// directResponse is the single-step answer for commands in answeredDirectly.
func directResponse(reply Reply) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply.Content,
			Embeds:  reply.Embeds,
			Flags:   messageFlags(reply.Ephemeral),
		},
	}
}

// deferredResponse acknowledges a slow command; mystats stays private throughout.
func deferredResponse(name string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: messageFlags(name == "mystats")},
	}
}

func replyEdit(reply Reply) *discordgo.WebhookEdit {
	if reply.Content == "" && len(reply.Embeds) == 0 {
		reply = text("Unknown command.")
	}
	edit := &discordgo.WebhookEdit{}
	if reply.Content != "" {
		edit.Content = &reply.Content
	}
	if len(reply.Embeds) > 0 {
		edit.Embeds = &reply.Embeds
	}
	return edit
}

// Handle is the discordgo interaction handler.
func (h *CommandHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	opts := make(map[string]string, len(data.Options))
	for _, o := range data.Options {
		if o.Type == discordgo.ApplicationCommandOptionString {
			opts[o.Name] = o.StringValue()
		}
	}
	log := h.logger.WithField("command", data.Name)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if answeredDirectly[data.Name] {
		if err := s.InteractionRespond(i.Interaction, directResponse(h.Respond(ctx, data.Name, opts))); err != nil {
			log.WithError(err).Warn("[Commands] reply failed")
		}
		return
	}

	if err := s.InteractionRespond(i.Interaction, deferredResponse(data.Name)); err != nil {
		log.WithError(err).Warn("[Commands] defer failed")
		return
	}
	if _, err := s.InteractionResponseEdit(i.Interaction, replyEdit(h.Respond(ctx, data.Name, opts))); err != nil {
		log.WithError(err).Warn("[Commands] reply failed")
	}
}
