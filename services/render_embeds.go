package services

import (
	"fmt"
	"strings"
	"time"

	"clash-bot/models"
	"clash-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
)

const (
	colorPrimary = 0xFF6B35
	colorAccent  = 0xFFD700
	colorSuccess = 0x00FF88
	colorCreated = 0x7B2FBE

	brandName      = "Crypto Clash"
	brandIconURL   = "https://raw.githubusercontent.com/cryptoclash/assets/main/icon.png"
	brandFooterImg = "https://raw.githubusercontent.com/cryptoclash/assets/main/footer.png"

	// standingsHeader marks an embed as a rendered standings table.
	standingsHeader = " #  Player                Score   Pick"
	standingsRows   = 25
)

// EmbedRenderer builds the Discord cards for tournament messages.
type EmbedRenderer struct {
	siteURL string
	clock   clockwork.Clock
}

func NewEmbedRenderer(siteURL string, clock clockwork.Clock) *EmbedRenderer {
	return &EmbedRenderer{siteURL: strings.TrimRight(siteURL, "/"), clock: clock}
}

func (r *EmbedRenderer) footer(e *discordgo.MessageEmbed) *discordgo.MessageEmbed {
	e.Footer = &discordgo.MessageEmbedFooter{Text: brandName, IconURL: brandIconURL}
	e.Timestamp = r.clock.Now().UTC().Format(time.RFC3339)
	return e
}

func (r *EmbedRenderer) playURL() string {
	return r.siteURL + "/play"
}

func entryName(e models.LeaderboardEntry) string {
	if e.PlayerName != "" {
		return e.PlayerName
	}
	return utils.ShortAddress(e.UserID)
}

func resultName(res models.TournamentResult) string {
	if res.PlayerName != "" {
		return res.PlayerName
	}
	return utils.ShortAddress(res.UserID)
}

func discordTime(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// compactClash renders 40000 as "40K" and 7500 as "7.5K".
func compactClash(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%.1f", float64(n)/1000)
	return strings.TrimSuffix(s, ".0") + "K"
}

func prizeParts(nfts int, clash int64, nftWord string) string {
	var parts []string
	if nfts > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", nfts, utils.Plural(nfts, nftWord)))
	}
	if clash > 0 {
		parts = append(parts, utils.FormatThousands(clash)+" $CLASH")
	}
	return strings.Join(parts, " + ")
}

func isStandingsEmbed(e *discordgo.MessageEmbed) bool {
	return e != nil && strings.Contains(e.Description, standingsHeader)
}

// Standings renders the live standings card used by the pinned message, the daily
// post and /standings.
func (r *EmbedRenderer) Standings(st *Standings) []*discordgo.MessageEmbed {
	t := st.Tournament
	lines := []string{
		fmt.Sprintf("**Day %d/7** · %d players · %s remaining", st.Day, st.ParticipantCount, st.TimeRemaining),
		"",
		"```",
		standingsHeader,
		"───────────────────────────────────────────",
	}

	show := min(len(st.Entries), standingsRows)
	for _, e := range st.Entries[:show] {
		name := []rune(entryName(e))
		if len(name) > 20 {
			name = name[:20]
		}
		pick := ""
		if e.SelectedCrypto != "" {
			arrow := "▼"
			if e.Direction == models.DirectionUp {
				arrow = "▲"
			}
			pick = arrow + " " + e.SelectedCrypto
		}
		lines = append(lines, fmt.Sprintf(" %2d  %-20s %7s   %s", e.Rank, string(name), utils.FormatScore(e.TotalScore), pick))
	}
	lines = append(lines, "```")
	if len(st.Entries) > show {
		lines = append(lines, fmt.Sprintf("*...and %d more*", len(st.Entries)-show))
	}

	prizes := t.PrizeTable()
	fields := make([]*discordgo.MessageEmbedField, 0, 6)
	labels := []string{"🥇 1st", "🥈 2nd", "🥉 3rd"}
	for i, label := range labels {
		if i >= len(prizes) {
			break
		}
		p := prizes[i]
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   label,
			Value:  fmt.Sprintf("%d %s\n%s $CLASH", p.PatronNFTs, utils.Plural(p.PatronNFTs, "NFT"), compactClash(p.ClashTokens)),
			Inline: true,
		})
	}
	league := t.LeagueCategory
	if league == "" {
		league = "Alpha"
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name: "⚔️ League", Value: fmt.Sprintf("%s #%d", league, t.WeekNumber), Inline: true,
	})
	if len(prizes) > 3 {
		first, last := prizes[3], prizes[len(prizes)-1]
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("💰 %d–%dth", first.Position, last.Position),
			Value:  compactClash(first.ClashTokens) + "→" + compactClash(last.ClashTokens),
			Inline: true,
		})
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name: "⚡ Play", Value: fmt.Sprintf("[Join](%s)", r.playURL()), Inline: true,
	})

	return []*discordgo.MessageEmbed{r.footer(&discordgo.MessageEmbed{
		Title:       "🏆 " + t.Name,
		URL:         r.playURL(),
		Color:       colorAccent,
		Description: strings.Join(lines, "\n"),
		Fields:      fields,
	})}
}

// Results renders the final placements card.
func (r *EmbedRenderer) Results(t models.Tournament, results []models.TournamentResult) []*discordgo.MessageEmbed {
	var lines []string
	var tier2, tier3, tier4 []models.TournamentResult

	for _, res := range results {
		switch {
		case res.FinalRank < 1:
		case res.FinalRank <= 3:
			lines = append(lines, fmt.Sprintf("%s **%s Place: %s** — %s pts",
				utils.Medal(res.FinalRank), utils.Ordinal(res.FinalRank), resultName(res), utils.FormatScore(res.FinalScore)))
			if res.HasPrize() {
				lines = append(lines, "   → 🎁 "+prizeParts(res.PrizeNFTs, res.PrizeClash, "Patron NFT"))
			}
			lines = append(lines, "")
		case res.FinalRank <= 5:
			tier2 = append(tier2, res)
		case res.FinalRank <= 10:
			tier3 = append(tier3, res)
		case res.FinalRank <= 50:
			tier4 = append(tier4, res)
		}
	}

	tierLines := func(title string, tier []models.TournamentResult) {
		if len(tier) == 0 {
			return
		}
		lines = append(lines, title)
		for _, res := range tier {
			lines = append(lines, fmt.Sprintf("   %d. %s — %s pts → %s $CLASH",
				res.FinalRank, resultName(res), utils.FormatScore(res.FinalScore), utils.FormatThousands(res.PrizeClash)))
		}
		lines = append(lines, "")
	}
	tierLines("**4th-5th Place:**", tier2)
	tierLines("**6th-10th Place:**", tier3)
	if len(tier4) > 0 {
		lines = append(lines, fmt.Sprintf("**11th-50th Place:** %d players → %s $CLASH each",
			len(tier4), utils.FormatThousands(tier4[0].PrizeClash)), "")
	}

	clash, nfts := models.PrizePool(t.PrizeTable())
	participants := 0
	if len(results) > 0 {
		participants = results[0].TotalParticipants
	}

	e := r.footer(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🏆 %s — Final Results!", t.Name),
		URL:         r.playURL(),
		Color:       colorSuccess,
		Description: strings.Join(lines, "\n"),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📊 Participants", Value: fmt.Sprintf("%d", participants), Inline: true},
			{Name: "💰 Prize Pool", Value: fmt.Sprintf("%s $CLASH + %d NFTs", utils.FormatThousands(clash), nfts), Inline: true},
		},
	})
	e.Image = &discordgo.MessageEmbedImage{URL: brandFooterImg}
	return []*discordgo.MessageEmbed{e}
}

func (r *EmbedRenderer) Created(t models.Tournament) *discordgo.MessageEmbed {
	return r.footer(&discordgo.MessageEmbed{
		Title: "⚔️ " + t.Name,
		Color: colorCreated,
		Description: strings.Join([]string{
			"A new weekly tournament has been created! Build your deck and lock in before the deadline.",
			"",
			"📅 **Starts:** " + discordTime(t.StartDate, "F"),
			"🏁 **Ends:** " + discordTime(t.EndDate, "F"),
			"🔒 **Lock Cards By:** " + discordTime(t.LockDate, "R"),
			"",
			"🏆 **Prizes:** Patron NFTs for top 3 | $CLASH for top 50",
			"",
			fmt.Sprintf("👉 **Play now at [cryptoclash.ink](%s)**", r.siteURL),
		}, "\n"),
	})
}

func (r *EmbedRenderer) Locked(t models.Tournament, participants int64) *discordgo.MessageEmbed {
	return r.footer(&discordgo.MessageEmbed{
		Title: "🔒 Cards Locked — " + t.Name,
		Color: colorAccent,
		Description: strings.Join([]string{
			fmt.Sprintf("The battle begins! **%d** participants have entered.", participants),
			"",
			"Good luck to all fighters! ⚔️",
		}, "\n"),
	})
}

func (r *EmbedRenderer) Finalized(t models.Tournament) *discordgo.MessageEmbed {
	return r.footer(&discordgo.MessageEmbed{
		Title:       "🏆 Results Are In!",
		Color:       colorSuccess,
		Description: fmt.Sprintf("**%s** results have been finalized! Check the results channel for winners and prizes.", t.Name),
	})
}

func (r *EmbedRenderer) TournamentInfo(st *Standings) *discordgo.MessageEmbed {
	t := st.Tournament
	league := t.LeagueCategory
	if league == "" {
		league = "Alpha"
	}
	return r.footer(&discordgo.MessageEmbed{
		Title: "⚔️ " + t.Name,
		URL:   r.playURL(),
		Color: colorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: strings.ToUpper(string(t.Status)), Inline: true},
			{Name: "Day", Value: fmt.Sprintf("%d/7", st.Day), Inline: true},
			{Name: "Time Left", Value: st.TimeRemaining, Inline: true},
			{Name: "Participants", Value: fmt.Sprintf("%d", st.ParticipantCount), Inline: true},
			{Name: "League", Value: league, Inline: true},
			{Name: "Week", Value: fmt.Sprintf("#%d", t.WeekNumber), Inline: true},
		},
	})
}

func (r *EmbedRenderer) Prizes(prizes []models.Prize) *discordgo.MessageEmbed {
	var lines []string
	shown := min(len(prizes), 15)
	for _, p := range prizes[:shown] {
		lines = append(lines, fmt.Sprintf("%s **#%d** → %s", utils.Medal(p.Position), p.Position,
			prizeParts(p.PatronNFTs, p.ClashTokens, "NFT")))
	}
	if len(prizes) > shown {
		rest := prizes[shown:]
		lines = append(lines, fmt.Sprintf("**#%d-#%d** → %s $CLASH each",
			rest[0].Position, rest[len(rest)-1].Position, utils.FormatThousands(rest[0].ClashTokens)))
	}
	clash, nfts := models.PrizePool(prizes)
	return r.footer(&discordgo.MessageEmbed{
		Title:       "💰 Prize Structure",
		Color:       colorAccent,
		Description: strings.Join(lines, "\n"),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Pool", Value: fmt.Sprintf("%s $CLASH + %d Patron NFTs", utils.FormatThousands(clash), nfts)},
		},
	})
}

func (r *EmbedRenderer) PlayerStats(entry models.LeaderboardEntry, tournamentName string, participants int64) *discordgo.MessageEmbed {
	trend := "📉"
	if entry.Direction == models.DirectionUp {
		trend = "📈"
	}
	pick := entry.SelectedCrypto
	if pick == "" {
		pick = "?"
	}
	return r.footer(&discordgo.MessageEmbed{
		Title: fmt.Sprintf("📊 %s — %s", entryName(entry), tournamentName),
		Color: colorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rank", Value: fmt.Sprintf("#%d / %d", entry.Rank, participants), Inline: true},
			{Name: "Score", Value: utils.FormatScore(entry.TotalScore), Inline: true},
			{Name: "Strategy", Value: pick + " " + trend, Inline: true},
		},
	})
}
