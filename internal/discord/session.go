package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// NewSession prepares a bot session. It does not connect.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	return s, nil
}

// Run connects, registers the slash commands for guildID (globally when empty),
// routes interactions until ctx is done and then disconnects.
func Run(ctx context.Context, s *discordgo.Session, guildID string, router *Router, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	remove := s.AddHandler(router.OnInteraction)
	defer remove()

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("discord close failed", "err", err)
		}
	}()

	if s.State == nil || s.State.User == nil {
		return fmt.Errorf("discord open: no bot user in session state")
	}
	appID := s.State.User.ID
	cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, Definitions(), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	logger.Info("discord connected", "user", s.State.User.Username, "guild_id", guildID, "commands", len(cmds))

	<-ctx.Done()
	logger.Info("discord shutting down")
	return nil
}
