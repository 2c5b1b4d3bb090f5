// Package discord binds the throne game to Discord: channels are chats, game
// views are pinned channel messages, and actions arrive as button presses.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"

	"throne/internal/view"
)

// RequiredBotPermissions covers pinning, unpinning and deleting other messages.
const RequiredBotPermissions = discordgo.PermissionManageMessages | discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles

// session is the slice of *discordgo.Session the adapter uses.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessagePin(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageUnpin(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)

	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Client implements the game's messaging and permission collaborators.
type Client struct {
	s     session
	botID func() string
	log   *slog.Logger
}

func NewClient(s *discordgo.Session, logger *slog.Logger) *Client {
	return newClient(s, func() string {
		if s.State == nil || s.State.User == nil {
			return ""
		}
		return s.State.User.ID
	}, logger)
}

func newClient(s session, botID func() string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{s: s, botID: botID, log: logger}
}

func (c *Client) Send(ctx context.Context, chatID string, msg view.Message) (string, error) {
	data := &discordgo.MessageSend{
		Content:    msg.Text,
		Components: components(msg.Actions),
	}
	if msg.ImagePath != "" {
		f, err := os.Open(msg.ImagePath)
		if err != nil {
			c.log.Warn("game image unavailable, sending text only", "path", msg.ImagePath, "err", err)
		} else {
			defer f.Close()
			data.Files = []*discordgo.File{{
				Name:        filepath.Base(msg.ImagePath),
				ContentType: contentType(msg.ImagePath),
				Reader:      f,
			}}
		}
	}
	m, err := c.s.ChannelMessageSendComplex(chatID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send game message: %w", err)
	}
	return m.ID, nil
}

func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	m, err := c.s.ChannelMessageSend(chatID, text, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send text: %w", err)
	}
	return m.ID, nil
}

func (c *Client) Pin(ctx context.Context, chatID, messageID string) error {
	return c.s.ChannelMessagePin(chatID, messageID, discordgo.WithContext(ctx))
}

func (c *Client) Unpin(ctx context.Context, chatID, messageID string) error {
	return c.s.ChannelMessageUnpin(chatID, messageID, discordgo.WithContext(ctx))
}

func (c *Client) Delete(ctx context.Context, chatID, messageID string) error {
	return c.s.ChannelMessageDelete(chatID, messageID, discordgo.WithContext(ctx))
}

// HasRequiredBotPermissions reports false when the permissions cannot be read.
func (c *Client) HasRequiredBotPermissions(ctx context.Context, chatID string) bool {
	botID := c.botID()
	if botID == "" {
		return false
	}
	perms, err := c.s.UserChannelPermissions(botID, chatID, discordgo.WithContext(ctx))
	if err != nil {
		c.log.Warn("bot permission lookup failed", "chat_id", chatID, "err", err)
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&RequiredBotPermissions == RequiredBotPermissions
}

func (c *Client) IsAdministrator(ctx context.Context, chatID, userID string) bool {
	perms, err := c.s.UserChannelPermissions(userID, chatID, discordgo.WithContext(ctx))
	if err != nil {
		c.log.Warn("member permission lookup failed", "chat_id", chatID, "user_id", userID, "err", err)
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

var actionButtons = map[view.Action]discordgo.Button{
	view.ActionAttack:  {Label: "⚔️ ATTACK", Style: discordgo.DangerButton, CustomID: string(view.ActionAttack)},
	view.ActionCashout: {Label: "💰 CASHOUT", Style: discordgo.SuccessButton, CustomID: string(view.ActionCashout)},
}

func components(actions []view.Action) []discordgo.MessageComponent {
	if len(actions) == 0 {
		return nil
	}
	row := discordgo.ActionsRow{}
	for _, a := range actions {
		if b, ok := actionButtons[a]; ok {
			row.Components = append(row.Components, b)
		}
	}
	return []discordgo.MessageComponent{row}
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
