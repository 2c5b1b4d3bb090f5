package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"throne/internal/bot"
	"throne/internal/view"
)

var errBoom = errors.New("boom")

type fakeSession struct {
	mu sync.Mutex

	next      int
	complex   []*discordgo.MessageSend
	texts     []string
	pins      []string
	perms     map[string]int64
	permsErr  error
	responses []*discordgo.InteractionResponse
	edits     []string
	deletes   int
	followups []*discordgo.WebhookParams
}

func newFakeSession() *fakeSession {
	return &fakeSession{perms: map[string]int64{}}
}

func (f *fakeSession) id() string {
	f.next++
	return "d" + strconv.Itoa(f.next)
}

func (f *fakeSession) ChannelMessageSend(_ string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, content)
	return &discordgo.Message{ID: f.id()}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data.Files) > 0 {
		// Drain the reader the way the HTTP upload would.
		if _, err := io.ReadAll(data.Files[0].Reader); err != nil {
			return nil, err
		}
	}
	f.complex = append(f.complex, data)
	return &discordgo.Message{ID: f.id()}, nil
}

func (f *fakeSession) ChannelMessagePin(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, messageID)
	return nil
}

func (f *fakeSession) ChannelMessageUnpin(string, string, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeSession) ChannelMessageDelete(string, string, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeSession) UserChannelPermissions(userID, _ string, _ ...discordgo.RequestOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.permsErr != nil {
		return 0, f.permsErr
	}
	return f.perms[userID], nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, *edit.Content)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) InteractionResponseDelete(*discordgo.Interaction, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func (f *fakeSession) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data)
	return &discordgo.Message{}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientSendAttachesButtonsAndImage(t *testing.T) {
	fs := newFakeSession()
	c := newClient(fs, func() string { return "bot" }, discard())
	ctx := context.Background()

	id, err := c.Send(ctx, "chan", view.Message{Text: "game", Actions: view.GameActions})
	require.NoError(t, err)
	assert.Equal(t, "d1", id)
	require.Len(t, fs.complex, 1)
	require.Len(t, fs.complex[0].Components, 1)
	row, ok := fs.complex[0].Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 2)
	assert.Equal(t, "attack", row.Components[0].(discordgo.Button).CustomID)
	assert.Equal(t, "cashout", row.Components[1].(discordgo.Button).CustomID)
	assert.Empty(t, fs.complex[0].Files)

	img := filepath.Join(t.TempDir(), "king.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))
	_, err = c.Send(ctx, "chan", view.Message{Text: "game", ImagePath: img})
	require.NoError(t, err)
	files := fs.complex[1].Files
	require.Len(t, files, 1)
	assert.Equal(t, "king.png", files[0].Name)
	assert.Equal(t, "image/png", files[0].ContentType)

	_, err = c.Send(ctx, "chan", view.Message{Text: "game", ImagePath: filepath.Join(t.TempDir(), "gone.jpg")})
	require.NoError(t, err, "a missing image falls back to text")
	assert.Empty(t, fs.complex[2].Files)
}

func TestClientPermissions(t *testing.T) {
	fs := newFakeSession()
	c := newClient(fs, func() string { return "bot" }, discard())
	ctx := context.Background()

	fs.perms["bot"] = discordgo.PermissionSendMessages
	assert.False(t, c.HasRequiredBotPermissions(ctx, "chan"))

	fs.perms["bot"] = RequiredBotPermissions
	assert.True(t, c.HasRequiredBotPermissions(ctx, "chan"))

	fs.perms["bot"] = discordgo.PermissionAdministrator
	assert.True(t, c.HasRequiredBotPermissions(ctx, "chan"))

	fs.perms["mod"] = discordgo.PermissionManageMessages
	fs.perms["owner"] = discordgo.PermissionAdministrator
	assert.False(t, c.IsAdministrator(ctx, "chan", "mod"))
	assert.True(t, c.IsAdministrator(ctx, "chan", "owner"))

	fs.permsErr = errBoom
	assert.False(t, c.HasRequiredBotPermissions(ctx, "chan"))
	assert.False(t, c.IsAdministrator(ctx, "chan", "owner"))

	noBot := newClient(fs, func() string { return "" }, discard())
	assert.False(t, noBot.HasRequiredBotPermissions(ctx, "chan"))
}

func member(id, nick string) *discordgo.Member {
	return &discordgo.Member{Nick: nick, User: &discordgo.User{ID: id, Username: "user-" + id}}
}

func slash(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "i1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g",
		ChannelID: "chan",
		Member:    member("u1", "Nick"),
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}
}

func button(customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "i2",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "g",
		ChannelID: "chan",
		Member:    member("u2", ""),
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
	}
}

func TestCommandFrom(t *testing.T) {
	cmd, err := commandFrom(slash("king", &discordgo.ApplicationCommandInteractionDataOption{
		Name: optAmount, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(250),
	}))
	require.NoError(t, err)
	assert.Equal(t, bot.Claim, cmd.Kind)
	assert.Equal(t, int64(250), cmd.Stake)
	assert.Equal(t, "chan", cmd.ChatID)
	assert.Equal(t, "Nick", cmd.User.Name)

	cmd, err = commandFrom(slash("sethouseedge", &discordgo.ApplicationCommandInteractionDataOption{
		Name: optPercent, Type: discordgo.ApplicationCommandOptionNumber, Value: 2.5,
	}))
	require.NoError(t, err)
	assert.Equal(t, bot.SetHouseEdge, cmd.Kind)
	assert.InDelta(t, 2.5, cmd.Percent, 1e-9)

	cmd, err = commandFrom(button("dump"))
	require.NoError(t, err)
	assert.Equal(t, bot.Attack, cmd.Kind)
	assert.Equal(t, "user-u2", cmd.User.Name)

	_, err = commandFrom(button("bogus"))
	require.ErrorIs(t, err, bot.ErrUnknownAction)

	_, err = commandFrom(slash("nope"))
	require.ErrorIs(t, err, bot.ErrUnknownCommand)

	dm := slash("king")
	dm.GuildID, dm.Member = "", nil
	dm.User = &discordgo.User{ID: "u1"}
	_, err = commandFrom(dm)
	require.ErrorIs(t, err, errDirectMessage)
}

func TestDefinitionsCoverEveryCommand(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, len(bot.Commands()))
	for _, d := range defs {
		assert.NotEmpty(t, d.Description, d.Name)
		if d.Name == "king" {
			require.Len(t, d.Options, 1)
			assert.Equal(t, optAmount, d.Options[0].Name)
			assert.True(t, d.Options[0].Required)
		}
	}
}

type stubHandler struct {
	reply bot.Reply
	err   error
	got   []bot.Command
}

func (h *stubHandler) Handle(_ context.Context, cmd bot.Command) (bot.Reply, error) {
	h.got = append(h.got, cmd)
	return h.reply, h.err
}

type stubReplier struct{ texts []string }

func (r *stubReplier) Reply(_ context.Context, _ string, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func TestRouterButtonPress(t *testing.T) {
	fs := newFakeSession()
	h := &stubHandler{reply: bot.Reply{Text: "❌ You can't attack yourself!", Private: true}}
	r := newRouter(context.Background(), fs, h, &stubReplier{}, discard())

	r.route(button("attack"))
	require.Len(t, h.got, 1)
	assert.Equal(t, bot.Attack, h.got[0].Kind)
	require.Len(t, fs.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, fs.responses[0].Type)
	require.Len(t, fs.followups, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, fs.followups[0].Flags)

	h.reply = bot.Reply{}
	r.route(button("cashout"))
	assert.Len(t, fs.followups, 1, "silent success sends no follow-up")
}

func TestRouterCommandReplies(t *testing.T) {
	fs := newFakeSession()
	h := &stubHandler{reply: bot.Reply{Text: "stats"}}
	rep := &stubReplier{}
	r := newRouter(context.Background(), fs, h, rep, discard())

	r.route(slash("kingstats"))
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, fs.responses[0].Type)
	assert.Equal(t, 1, fs.deletes)
	assert.Equal(t, []string{"stats"}, rep.texts)

	h.reply = bot.Reply{Text: "private", Private: true}
	h.err = errBoom
	r.route(slash("kingeconomy"))
	assert.Equal(t, []string{"private"}, fs.edits)
}

func TestRouterRejectsUnknownInteraction(t *testing.T) {
	fs := newFakeSession()
	h := &stubHandler{}
	r := newRouter(context.Background(), fs, h, &stubReplier{}, discard())

	r.route(button("bogus"))
	assert.Empty(t, h.got)
	require.Len(t, fs.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, fs.responses[0].Type)
	assert.Equal(t, "❌ Unknown action.", fs.responses[0].Data.Content)
}
