package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"throne/internal/bot"
	"throne/internal/economy"
	"throne/internal/throne"
)

var errDirectMessage = errors.New("direct messages are not supported")

var descriptions = map[bot.Kind]string{
	bot.Start:        "Show the welcome message",
	bot.Help:         "How to play King of the Chat",
	bot.Claim:        "Claim the empty throne with a bet",
	bot.Reset:        "Reset the current king (admins only)",
	bot.ForceReset:   "Force reset without the admin check",
	bot.Stats:        "Show chat statistics",
	bot.EconomyInfo:  "View economy settings (admins only)",
	bot.SetHouseEdge: "Set the house edge percentage (admins only)",
}

const (
	optAmount  = "amount"
	optPercent = "percent"
)

// Definitions returns the slash commands to register.
func Definitions() []*discordgo.ApplicationCommand {
	minStake := float64(economy.MinStake)
	zero := 0.0

	out := make([]*discordgo.ApplicationCommand, 0, len(bot.Commands()))
	for _, k := range bot.Commands() {
		cmd := &discordgo.ApplicationCommand{Name: k.String(), Description: descriptions[k]}
		switch k {
		case bot.Claim:
			cmd.Options = []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optAmount,
				Description: fmt.Sprintf("Bet amount (%d-%d)", economy.MinStake, economy.MaxStake),
				Required:    true,
				MinValue:    &minStake,
				MaxValue:    float64(economy.MaxStake),
			}}
		case bot.SetHouseEdge:
			cmd.Options = []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        optPercent,
				Description: "House edge in percent (0-50)",
				Required:    true,
				MinValue:    &zero,
				MaxValue:    economy.MaxHouseEdge * 100,
			}}
		}
		out = append(out, cmd)
	}
	return out
}

// commandFrom translates an interaction into a game command.
func commandFrom(i *discordgo.Interaction) (bot.Command, error) {
	if i.GuildID == "" || i.Member == nil {
		return bot.Command{}, errDirectMessage
	}
	cmd := bot.Command{ChatID: i.ChannelID, User: player(i.Member)}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		kind, err := bot.ParseCommand(data.Name)
		if err != nil {
			return bot.Command{}, err
		}
		cmd.Kind = kind
		for _, opt := range data.Options {
			switch opt.Name {
			case optAmount:
				cmd.Stake = opt.IntValue()
			case optPercent:
				cmd.Percent = opt.FloatValue()
			}
		}
	case discordgo.InteractionMessageComponent:
		kind, err := bot.ParseAction(i.MessageComponentData().CustomID)
		if err != nil {
			return bot.Command{}, err
		}
		cmd.Kind = kind
	default:
		return bot.Command{}, fmt.Errorf("%w: interaction type %d", bot.ErrUnknownAction, i.Type)
	}
	return cmd, nil
}

func player(m *discordgo.Member) throne.Player {
	if m.User == nil {
		return throne.Player{}
	}
	name := m.Nick
	if name == "" {
		name = m.User.GlobalName
	}
	if name == "" {
		name = m.User.Username
	}
	return throne.Player{ID: m.User.ID, Name: name}
}
