package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"clash-bot/models"
	"clash-bot/utils"
)

const cardFooter = "CRYPTOCLASH.INK"

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeHTML escapes the three characters Telegram's HTML mode requires.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

func weekLabel(t models.Tournament) string {
	if t.WeekNumber <= 0 {
		return "?"
	}
	return strconv.Itoa(t.WeekNumber)
}

// cardURL builds the social service's OG card path, keeping parameter order.
func cardURL(params [][2]string) string {
	parts := make([]string, 0, len(params))
	for _, kv := range params {
		parts = append(parts, kv[0]+"="+strings.ReplaceAll(url.QueryEscape(kv[1]), "+", "%20"))
	}
	return "/api/og/cc-card?" + strings.Join(parts, "&")
}

// SocialPost is the text and promo image for one social post.
type SocialPost struct {
	Text     string
	ImageURL string
}

func socialCreated(t models.Tournament) SocialPost {
	week := weekLabel(t)
	days := t.DurationDays()
	start, lock, end := utils.ShortDate(t.StartDate), utils.ShortDate(t.LockDate), utils.ShortDate(t.EndDate)

	text := fmt.Sprintf(`🃏 Pick your heroes, choose your strategy, and let the market decide who wins. Best rank after %d days, better prizes.

⚔️ Weekly Tournament #%s starts %s

🔒 Lock your cards by %s
🏆 Patron NFTs for top 3
💰 $CLASH for top 50

Built on @inkonchain

Join now 👉 cryptoclash.ink`, days, week, start, lock)

	return SocialPost{Text: text, ImageURL: cardURL([][2]string{
		{"title", "Weekly Tournament #" + week},
		{"subtitle", "LOCK YOUR CARDS BY " + strings.ToUpper(lock)},
		{"s1l", "STARTS"}, {"s1v", start},
		{"s2l", "ENDS"}, {"s2v", end},
		{"s3l", "DURATION"}, {"s3v", fmt.Sprintf("%d Days", days)},
		{"p1", "Patron NFTs (Top 3)"},
		{"p2", "$CLASH (Top 50)"},
		{"footer", cardFooter},
	})}
}

func socialLocked(t models.Tournament, participants int64) SocialPost {
	week := weekLabel(t)
	text := fmt.Sprintf(`🔒 Cards are locked for Weekly Tournament #%s!

%d players have entered. The battle begins now ⚔️

Who will climb the ranks? Follow the action at cryptoclash.ink`, week, participants)

	return SocialPost{Text: text, ImageURL: cardURL([][2]string{
		{"title", "Cards Locked! ⚔️"},
		{"subtitle", "THE BATTLE BEGINS"},
		{"s1l", "PLAYERS"}, {"s1v", strconv.FormatInt(participants, 10)},
		{"s2l", "TOURNAMENT"}, {"s2v", "Week " + week},
		{"s3l", "DURATION"}, {"s3v", fmt.Sprintf("%d Days", t.DurationDays())},
		{"footer", cardFooter},
	})}
}

func socialResults(t models.Tournament, podium []PodiumPlace) SocialPost {
	week := weekLabel(t)
	podiumText := ""
	if len(podium) >= 3 {
		podiumText = fmt.Sprintf("\n\n🥇 %s\n🥈 %s\n🥉 %s", podium[0].Name, podium[1].Name, podium[2].Name)
	}
	text := fmt.Sprintf(`🏆 Weekly Tournament #%s is over!%s

Congrats to all winners! Prizes incoming 🎁

Next tournament coming soon. Build your deck 👉 cryptoclash.ink`, week, podiumText)

	params := [][2]string{
		{"title", fmt.Sprintf("Tournament #%s Results 🏆", week)},
		{"subtitle", "FINAL STANDINGS"},
		{"footer", cardFooter},
	}
	labels := []string{"🥇 1ST", "🥈 2ND", "🥉 3RD"}
	for i, p := range podium[:min(3, len(podium))] {
		n := strconv.Itoa(i + 1)
		params = append(params, [2]string{"s" + n + "l", labels[i]}, [2]string{"s" + n + "v", p.Name})
	}
	return SocialPost{Text: text, ImageURL: cardURL(params)}
}

// RenderSocial picks the template for the announcement kind.
func RenderSocial(ann Announcement) SocialPost {
	switch ann.Kind {
	case EventCreated:
		return socialCreated(ann.Tournament)
	case EventLocked:
		return socialLocked(ann.Tournament, ann.ParticipantCount)
	default:
		return socialResults(ann.Tournament, ann.Podium)
	}
}

func formatPoints(score float64) string {
	return strings.TrimSuffix(utils.FormatDecimal(score, 1), ".0")
}

// RenderTelegram renders the HTML message for the announcement kind.
func RenderTelegram(ann Announcement, siteURL string) string {
	t := ann.Tournament
	name := escapeHTML(t.Name)
	link := fmt.Sprintf(`<a href="%s">cryptoclash.ink</a>`, siteURL)

	switch ann.Kind {
	case EventCreated:
		return fmt.Sprintf(`🏆 <b>New Tournament: %s</b>

📅 %s — %s
🔒 Cards lock: %s

🎁 Patron NFTs for top 3 | $CLASH for top 50

Build your deck and compete 👉 %s`, name, utils.LongDate(t.StartDate), utils.LongDate(t.EndDate), utils.LongDate(t.LockDate), link)

	case EventLocked:
		return fmt.Sprintf(`🔒 <b>%s — Cards Locked!</b>

%d players are in. No more card changes.

⚔️ Battle runs until %s. May the best deck win!

Check standings 👉 %s`, name, ann.ParticipantCount, utils.LongDate(t.EndDate), link)

	default:
		medals := []string{"🥇", "🥈", "🥉"}
		lines := make([]string, 0, 3)
		for i, p := range ann.Podium[:min(3, len(ann.Podium))] {
			lines = append(lines, fmt.Sprintf("%s %s — %s pts", medals[i], escapeHTML(p.Name), formatPoints(p.Score)))
		}
		return fmt.Sprintf(`🏁 <b>%s — Results!</b>

%s

🎁 Prizes being distributed. GG everyone!

Full results 👉 %s`, name, strings.Join(lines, "\n"), link)
	}
}
