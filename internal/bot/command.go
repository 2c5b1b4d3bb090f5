// Package bot turns platform events into typed commands and runs them against
// the throne service.
package bot

import (
	"errors"
	"fmt"
	"strings"

	"throne/internal/throne"
	"throne/internal/view"
)

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownCommand = errors.New("unknown command")
)

type Kind int

const (
	Start Kind = iota + 1
	Help
	Claim
	Reset
	ForceReset
	Stats
	EconomyInfo
	SetHouseEdge
	Attack
	Cashout
)

var kindNames = map[Kind]string{
	Start:        "start",
	Help:         "help",
	Claim:        "king",
	Reset:        "kingreset",
	ForceReset:   "kingresetforce",
	Stats:        "kingstats",
	EconomyInfo:  "kingeconomy",
	SetHouseEdge: "sethouseedge",
	Attack:       string(view.ActionAttack),
	Cashout:      string(view.ActionCashout),
}

// String returns the slash command name, or the action name for buttons.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsAction reports whether k arrives as a button press rather than a command.
func (k Kind) IsAction() bool {
	return k == Attack || k == Cashout
}

// Command is one inbound unit of work. Stake is set for Claim and Percent
// (a whole percentage, 0-50) for SetHouseEdge.
type Command struct {
	Kind    Kind
	ChatID  string
	User    throne.Player
	Stake   int64
	Percent float64
}

// Commands lists the slash commands in registration order.
func Commands() []Kind {
	return []Kind{Start, Help, Claim, Reset, ForceReset, Stats, EconomyInfo, SetHouseEdge}
}

// ParseCommand maps a slash command name to its kind.
func ParseCommand(name string) (Kind, error) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "/")
	for _, k := range Commands() {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// ParseAction maps button callback data to its kind. "dump" is an older name
// for attack that buttons posted by earlier versions still carry.
func ParseAction(data string) (Kind, error) {
	switch view.Action(data) {
	case view.ActionAttack, "dump":
		return Attack, nil
	case view.ActionCashout:
		return Cashout, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
}
