package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clash-bot/config"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// PresenceSession is what a price bot needs from its gateway session.
type PresenceSession interface {
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
	UpdateWatchStatus(idle int, name string) error
}

// PriceBot shows one asset's price as its nickname in every guild it is in.
type PriceBot struct {
	Symbol  string
	session PresenceSession
	guilds  func() []string
	limiter *rate.Limiter
}

// NicknameEvery bounds how often one bot renames itself.
const NicknameEvery = 30 * time.Second

func NewPriceBot(symbol string, session PresenceSession, guilds func() []string) *PriceBot {
	return &PriceBot{
		Symbol:  symbol,
		session: session,
		guilds:  guilds,
		limiter: rate.NewLimiter(rate.Every(NicknameEvery), 1),
	}
}

// Update sets nickname and status. It returns false without calling Discord
// when the bot updated too recently.
func (b *PriceBot) Update(q Quote) (bool, error) {
	if !b.limiter.Allow() {
		return false, nil
	}
	nick := Nickname(b.Symbol, q)
	var errs []error
	for _, g := range b.guilds() {
		if err := b.session.GuildMemberNickname(g, "@me", nick); err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", g, err))
		}
	}
	if err := b.session.UpdateWatchStatus(0, WatchStatus(q)); err != nil {
		errs = append(errs, fmt.Errorf("status: %w", err))
	}
	return true, errors.Join(errs...)
}

// BotRegistry owns every gateway session: one per price token plus the tournament bot.
type BotRegistry struct {
	cfg    config.DiscordConfig
	logger *logrus.Logger

	sessions   []*discordgo.Session
	priceBots  []*PriceBot
	tournament *discordgo.Session
}

func NewBotRegistry(cfg config.DiscordConfig, logger *logrus.Logger) *BotRegistry {
	return &BotRegistry{cfg: cfg, logger: logger}
}

func (r *BotRegistry) open(name, token string, intents discordgo.Intent) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("%s bot: %w", name, err)
	}
	s.Identify.Intents = intents
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("%s bot: open gateway: %w", name, err)
	}
	r.sessions = append(r.sessions, s)
	r.logger.WithField("bot", name).Info("[Bots] online")
	return s, nil
}

func (r *BotRegistry) guildsOf(s *discordgo.Session) func() []string {
	return func() []string {
		if r.cfg.GuildID != "" {
			return []string{r.cfg.GuildID}
		}
		var ids []string
		for _, g := range s.State.Guilds {
			ids = append(ids, g.ID)
		}
		return ids
	}
}

// Start logs in every bot that has a token. A bot that fails to connect is
// logged and left out; the others keep running.
func (r *BotRegistry) Start(setupTournament func(*discordgo.Session)) {
	tokens := []struct{ symbol, token string }{
		{"BTC", r.cfg.TokenBTC},
		{"ETH", r.cfg.TokenETH},
		{"SOL", r.cfg.TokenSOL},
		{"LINK", r.cfg.TokenLINK},
		{"HYPE", r.cfg.TokenHYPE},
		{"CLASH", r.cfg.TokenCLASH},
	}
	for _, t := range tokens {
		if t.token == "" {
			r.logger.WithField("bot", t.symbol).Debug("[Bots] no token, skipping")
			continue
		}
		s, err := r.open(t.symbol, t.token, discordgo.IntentsGuilds)
		if err != nil {
			r.logger.WithError(err).Error("[Bots] failed to start")
			continue
		}
		r.priceBots = append(r.priceBots, NewPriceBot(t.symbol, s, r.guildsOf(s)))
	}

	if r.cfg.TokenTourny == "" {
		r.logger.Warn("[Bots] no tournament token, tournament bot disabled")
		return
	}
	s, err := discordgo.New("Bot " + r.cfg.TokenTourny)
	if err != nil {
		r.logger.WithError(err).Error("[Bots] failed to create tournament bot")
		return
	}
	if setupTournament != nil {
		setupTournament(s)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	if err := s.Open(); err != nil {
		r.logger.WithError(err).Error("[Bots] failed to start tournament bot")
		return
	}
	r.sessions = append(r.sessions, s)
	r.tournament = s
	r.logger.WithField("bot", "TOURNAMENT").Info("[Bots] online")
}

// Tournament is the tournament bot's session, nil when it is not running.
func (r *BotRegistry) Tournament() *discordgo.Session {
	return r.tournament
}

// AddPriceBot registers an already connected price bot.
func (r *BotRegistry) AddPriceBot(b *PriceBot) {
	r.priceBots = append(r.priceBots, b)
}

// RefreshPrices fetches all quotes once and pushes them to every price bot.
func (r *BotRegistry) RefreshPrices(ctx context.Context, prices *PriceService) error {
	if len(r.priceBots) == 0 {
		return nil
	}
	quotes := prices.FetchAll(ctx)
	var errs []error
	for _, b := range r.priceBots {
		q, ok := quotes[b.Symbol]
		if !ok {
			continue
		}
		updated, err := b.Update(q)
		if err != nil {
			r.logger.WithError(err).WithField("bot", b.Symbol).Warn("[Bots] price display update failed")
			errs = append(errs, err)
			continue
		}
		if updated {
			r.logger.WithField("bot", b.Symbol).Debugf("[Bots] %s", Nickname(b.Symbol, q))
		}
	}
	return errors.Join(errs...)
}

func (r *BotRegistry) Close() {
	for _, s := range r.sessions {
		if err := s.Close(); err != nil {
			r.logger.WithError(err).Warn("[Bots] close failed")
		}
	}
	r.sessions = nil
}
