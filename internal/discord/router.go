package discord

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"throne/internal/bot"
)

const handleTimeout = 30 * time.Second

type Handler interface {
	Handle(ctx context.Context, cmd bot.Command) (bot.Reply, error)
}

// Replier posts a persistent message into a chat.
type Replier interface {
	Reply(ctx context.Context, chatID, text string) error
}

// Router acknowledges every interaction immediately, runs it through the
// handler and then settles the acknowledgement with the reply.
type Router struct {
	s       session
	handler Handler
	replier Replier
	log     *slog.Logger
	base    context.Context
}

func NewRouter(ctx context.Context, s *discordgo.Session, handler Handler, replier Replier, logger *slog.Logger) *Router {
	return newRouter(ctx, s, handler, replier, logger)
}

func newRouter(ctx context.Context, s session, handler Handler, replier Replier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{s: s, handler: handler, replier: replier, log: logger, base: ctx}
}

// OnInteraction is registered with discordgo's AddHandler.
func (r *Router) OnInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	r.route(ic.Interaction)
}

func (r *Router) route(i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(r.base, handleTimeout)
	defer cancel()

	cmd, err := commandFrom(i)
	if err != nil {
		r.log.Info("interaction rejected", "interaction_id", i.ID, "err", err)
		text := "❌ Unknown action."
		if errors.Is(err, errDirectMessage) {
			text = "👑 King of the Chat runs in server channels."
		}
		r.respondNow(i, text)
		return
	}

	if err := r.ack(i, cmd.Kind.IsAction()); err != nil {
		r.log.Warn("interaction ack failed", "interaction_id", i.ID, "err", err)
		return
	}

	reply, err := r.handler.Handle(ctx, cmd)
	if err != nil {
		r.log.Error("interaction failed", "interaction_id", i.ID, "command", cmd.Kind.String(), "err", err)
	}
	r.settle(ctx, i, cmd, reply)
}

func (r *Router) respondNow(i *discordgo.Interaction, text string) {
	err := r.s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		r.log.Warn("interaction respond failed", "interaction_id", i.ID, "err", err)
	}
}

// ack acknowledges i. Button presses leave the game message untouched;
// commands show a private "thinking" state until settled.
func (r *Router) ack(i *discordgo.Interaction, action bool) error {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}
	if action {
		resp = &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	}
	return r.s.InteractionRespond(i, resp)
}

func (r *Router) settle(ctx context.Context, i *discordgo.Interaction, cmd bot.Command, reply bot.Reply) {
	var err error
	switch {
	case cmd.Kind.IsAction():
		if reply.Text != "" {
			_, err = r.s.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
				Content: reply.Text,
				Flags:   discordgo.MessageFlagsEphemeral,
			}, discordgo.WithContext(ctx))
		}
	case reply.Private:
		text := reply.Text
		_, err = r.s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx))
	default:
		err = r.s.InteractionResponseDelete(i, discordgo.WithContext(ctx))
		if reply.Text != "" {
			if rerr := r.replier.Reply(ctx, cmd.ChatID, reply.Text); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
	}
	if err != nil {
		r.log.Warn("interaction settle failed", "interaction_id", i.ID, "command", cmd.Kind.String(), "err", err)
	}
}
