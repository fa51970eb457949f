package services

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// ChatClient is the part of the Discord API the tournament bot uses.
type ChatClient interface {
	SelfID() string
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditEmbeds(ctx context.Context, channelID, messageID string, embeds []*discordgo.MessageEmbed) error
	PinnedMessages(ctx context.Context, channelID string) ([]*discordgo.Message, error)
	PinMessage(ctx context.Context, channelID, messageID string) error
}

// DiscordChat adapts a bot session to ChatClient.
type DiscordChat struct {
	session *discordgo.Session
}

func NewDiscordChat(session *discordgo.Session) *DiscordChat {
	return &DiscordChat{session: session}
}

func (c *DiscordChat) SelfID() string {
	if c.session.State != nil && c.session.State.User != nil {
		return c.session.State.User.ID
	}
	u, err := c.session.User("@me")
	if err != nil {
		return ""
	}
	return u.ID
}

func (c *DiscordChat) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
}

func (c *DiscordChat) EditEmbeds(ctx context.Context, channelID, messageID string, embeds []*discordgo.MessageEmbed) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetEmbeds(embeds)
	_, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (c *DiscordChat) PinnedMessages(ctx context.Context, channelID string) ([]*discordgo.Message, error) {
	return c.session.ChannelMessagesPinned(channelID, discordgo.WithContext(ctx))
}

func (c *DiscordChat) PinMessage(ctx context.Context, channelID, messageID string) error {
	return c.session.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx))
}
