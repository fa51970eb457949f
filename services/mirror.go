package services

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	mirrorColor  = 0x7B2FBE
	mirrorFooter = "Help us grow — like & retweet!"
)

// TweetMirror reposts a published tweet into a Discord channel with intent buttons.
type TweetMirror struct {
	chat      ChatClient
	channelID string
	handle    string
}

func NewTweetMirror(chat ChatClient, channelID, handle string) *TweetMirror {
	return &TweetMirror{chat: chat, channelID: channelID, handle: handle}
}

func (m *TweetMirror) Enabled() bool {
	return m != nil && m.chat != nil && m.channelID != ""
}

func (m *TweetMirror) tweetURL(res PublishResult) string {
	if res.URL != "" {
		return res.URL
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", m.handle, res.TweetID)
}

// Message builds the mirror post for a published tweet.
func (m *TweetMirror) Message(text string, res PublishResult) *discordgo.MessageSend {
	link := func(label, url string) discordgo.MessageComponent {
		return discordgo.Button{Label: label, Style: discordgo.LinkButton, URL: url}
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Author: &discordgo.MessageEmbedAuthor{
				Name: "@" + m.handle,
				URL:  "https://x.com/" + m.handle,
			},
			Description: text,
			Color:       mirrorColor,
			Footer:      &discordgo.MessageEmbedFooter{Text: mirrorFooter},
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				link("❤️ Like", "https://x.com/intent/like?tweet_id="+res.TweetID),
				link("🔁 Retweet", "https://x.com/intent/retweet?tweet_id="+res.TweetID),
				link("💬 Reply", "https://x.com/intent/tweet?in_reply_to="+res.TweetID),
				link("🔗 View Tweet", m.tweetURL(res)),
			}},
		},
	}
}

func (m *TweetMirror) Post(ctx context.Context, text string, res PublishResult) error {
	if !m.Enabled() || res.TweetID == "" {
		return nil
	}
	_, err := m.chat.SendMessage(ctx, m.channelID, m.Message(text, res))
	return err
}
