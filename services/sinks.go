package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// ChatSink posts announcements to the Discord announce and results channels.
type ChatSink struct {
	chat      ChatClient
	renderer  *EmbedRenderer
	announce  string
	resultsCh string
}

func NewChatSink(chat ChatClient, renderer *EmbedRenderer, announceChannel, resultsChannel string) *ChatSink {
	return &ChatSink{chat: chat, renderer: renderer, announce: announceChannel, resultsCh: resultsChannel}
}

func (s *ChatSink) Name() string { return "discord" }

func (s *ChatSink) Enabled() bool {
	return s.chat != nil && (s.announce != "" || s.resultsCh != "")
}

func (s *ChatSink) Send(ctx context.Context, ann Announcement) error {
	switch ann.Kind {
	case EventCreated:
		return s.post(ctx, s.announce, &discordgo.MessageSend{
			Content: "@everyone",
			Embeds:  []*discordgo.MessageEmbed{s.renderer.Created(ann.Tournament)},
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
			},
		})
	case EventLocked:
		return s.post(ctx, s.announce, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{s.renderer.Locked(ann.Tournament, ann.ParticipantCount)},
		})
	case EventResults:
		errResults := s.post(ctx, s.resultsCh, &discordgo.MessageSend{
			Embeds: s.renderer.Results(ann.Tournament, ann.Results),
		})
		errNotice := s.post(ctx, s.announce, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{s.renderer.Finalized(ann.Tournament)},
		})
		return errors.Join(errResults, errNotice)
	default:
		return fmt.Errorf("discord: unknown event %q", ann.Kind)
	}
}

func (s *ChatSink) post(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	if channelID == "" {
		return nil
	}
	if _, err := s.chat.SendMessage(ctx, channelID, msg); err != nil {
		return fmt.Errorf("discord channel %s: %w", channelID, err)
	}
	return nil
}

// SocialSink creates, illustrates and publishes a post, then mirrors it to Discord.
// Only the create and publish steps can fail the sink.
type SocialSink struct {
	client *SocialClient
	mirror *TweetMirror
	promo  *PromoImager
	logger *logrus.Logger
}

func NewSocialSink(client *SocialClient, mirror *TweetMirror, promo *PromoImager, logger *logrus.Logger) *SocialSink {
	return &SocialSink{client: client, mirror: mirror, promo: promo, logger: logger}
}

func (s *SocialSink) Name() string { return "social" }

func (s *SocialSink) Enabled() bool { return s.client.Enabled() }

func (s *SocialSink) Send(ctx context.Context, ann Announcement) error {
	post := RenderSocial(ann)
	log := s.logger.WithFields(logrus.Fields{"event": ann.Kind, "tournament_id": ann.Tournament.ID})

	postID, err := s.client.CreatePost(ctx, post.Text)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	if imageURL := s.promo.ImageURL(ctx, ann, post); imageURL != "" {
		if err := s.client.AttachImage(ctx, postID, imageURL); err != nil {
			log.WithError(err).Warn("[Social] image attach failed, publishing text only")
		}
	}

	res, err := s.client.Publish(ctx, postID)
	if err != nil {
		return fmt.Errorf("post %s created but not published: %w", postID, err)
	}
	log.WithField("tweet_id", res.TweetID).Info("[Social] published")

	if err := s.mirror.Post(ctx, post.Text, res); err != nil {
		log.WithError(err).Warn("[Social] discord mirror failed")
	}
	return nil
}

// MessagingSink posts HTML announcements to a Telegram channel.
type MessagingSink struct {
	client  *TelegramClient
	chatID  string
	siteURL string
}

func NewMessagingSink(client *TelegramClient, chatID, siteURL string) *MessagingSink {
	return &MessagingSink{client: client, chatID: chatID, siteURL: siteURL}
}

func (s *MessagingSink) Name() string { return "telegram" }

func (s *MessagingSink) Enabled() bool { return s.client.Enabled() && s.chatID != "" }

func (s *MessagingSink) Send(ctx context.Context, ann Announcement) error {
	return s.client.SendMessage(ctx, s.chatID, RenderTelegram(ann, s.siteURL))
}
