package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"throne/internal/economy"
	"throne/internal/lifecycle"
	"throne/internal/throne"
	"throne/internal/view"
)

// Reply is the direct answer to the invoker. Private replies are shown only to
// them; an empty Text means the event was handled through the chat itself.
type Reply struct {
	Text    string
	Private bool
}

// Notifier posts short-lived chat notices.
type Notifier interface {
	Notice(ctx context.Context, chatID, text string)
}

type Dispatcher struct {
	svc     *throne.Service
	perms   throne.Permissions
	notices Notifier
	log     *slog.Logger
}

func NewDispatcher(svc *throne.Service, perms throne.Permissions, notices Notifier, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{svc: svc, perms: perms, notices: notices, log: logger}
}

// Handle runs cmd. Rule violations come back as private replies with a nil
// error; the error is reserved for failures the invoker cannot fix.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) (Reply, error) {
	log := d.log.With(
		"op_id", uuid.NewString(),
		"command", cmd.Kind.String(),
		"chat_id", cmd.ChatID,
		"user_id", cmd.User.ID)

	reply, err := d.handle(ctx, cmd)
	switch {
	case err == nil:
		log.Debug("command handled")
		return reply, nil
	case throne.IsValidation(err), errors.Is(err, throne.ErrNotAdmin), errors.Is(err, ErrUnknownAction):
		log.Info("command rejected", "err", err)
		return Reply{Text: userMessage(err), Private: true}, nil
	default:
		log.Error("command failed", "err", err)
		return Reply{Text: userMessage(err), Private: true}, err
	}
}

func (d *Dispatcher) handle(ctx context.Context, cmd Command) (Reply, error) {
	switch cmd.Kind {
	case Start:
		d.svc.Balance(ctx, cmd.ChatID, cmd.User)
		return Reply{Text: view.Welcome()}, nil
	case Help:
		return Reply{Text: view.Help()}, nil
	case Claim:
		return d.claim(ctx, cmd)
	case Attack:
		return d.attack(ctx, cmd)
	case Cashout:
		return d.cashout(ctx, cmd)
	case Reset:
		res, err := d.svc.Reset(ctx, cmd.ChatID, cmd.User)
		if err != nil {
			return Reply{}, err
		}
		return d.resetReply(ctx, cmd.ChatID, res), nil
	case ForceReset:
		res, err := d.svc.ForceReset(ctx, cmd.ChatID, cmd.User)
		if err != nil {
			return Reply{}, err
		}
		return d.resetReply(ctx, cmd.ChatID, res), nil
	case Stats:
		return Reply{Text: view.Stats(d.svc.ChatStats(cmd.ChatID))}, nil
	case EconomyInfo:
		info, err := d.svc.EconomyInfo(ctx, cmd.ChatID, cmd.User)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: view.Economy(info), Private: true}, nil
	case SetHouseEdge:
		info, err := d.svc.SetHouseEdge(ctx, cmd.ChatID, cmd.User, cmd.Percent/100)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: view.HouseEdgeUpdated(info)}, nil
	default:
		return Reply{}, fmt.Errorf("%w: %s", ErrUnknownAction, cmd.Kind)
	}
}

func (d *Dispatcher) claim(ctx context.Context, cmd Command) (Reply, error) {
	if !d.botReady(ctx, cmd.ChatID) {
		return Reply{Text: view.PermissionsMissing(), Private: true}, nil
	}
	res, err := d.svc.Claim(ctx, cmd.ChatID, cmd.User, cmd.Stake)
	if err != nil {
		return Reply{}, err
	}
	d.notices.Notice(ctx, cmd.ChatID, view.ClaimNotice(view.Name(res.King.HolderName, res.King.HolderID), res.King.Stake))
	return Reply{}, nil
}

func (d *Dispatcher) attack(ctx context.Context, cmd Command) (Reply, error) {
	if !d.botReady(ctx, cmd.ChatID) {
		return Reply{Text: view.PermissionsMissing(), Private: true}, nil
	}
	res, err := d.svc.Attack(ctx, cmd.ChatID, cmd.User)
	if err != nil {
		return Reply{}, err
	}
	text := view.SurviveNotice(res.King.Streak)
	if res.ChallengerWon() {
		text = view.DefeatNotice(view.Name(res.King.HolderName, res.King.HolderID))
	}
	d.notices.Notice(ctx, cmd.ChatID, text)
	return Reply{}, nil
}

func (d *Dispatcher) cashout(ctx context.Context, cmd Command) (Reply, error) {
	if !d.botReady(ctx, cmd.ChatID) {
		return Reply{Text: view.PermissionsMissing(), Private: true}, nil
	}
	res, err := d.svc.Cashout(ctx, cmd.ChatID, cmd.User)
	if err != nil {
		return Reply{}, err
	}
	d.notices.Notice(ctx, cmd.ChatID, view.CashoutNotice(res.Payout))
	return Reply{}, nil
}

func (d *Dispatcher) resetReply(ctx context.Context, chatID string, res throne.ResetResult) Reply {
	if !res.Cleared {
		return Reply{Text: view.NothingToReset()}
	}
	d.notices.Notice(ctx, chatID, view.ResetNotice())
	return Reply{Text: view.Reset(view.ResetSummary{
		Force:     res.Force,
		Previous:  res.Previous,
		UserCount: res.UserCount,
	})}
}

func (d *Dispatcher) botReady(ctx context.Context, chatID string) bool {
	return d.perms == nil || d.perms.HasRequiredBotPermissions(ctx, chatID)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, throne.ErrInvalidStake):
		return fmt.Sprintf("❌ Bet must be between %d and %d coins.", economy.MinStake, economy.MaxStake)
	case errors.Is(err, throne.ErrInsufficientBalance):
		return fmt.Sprintf("❌ Not enough coins (%v).", err)
	case errors.Is(err, throne.ErrSelfAttack):
		return "❌ You can't attack yourself!"
	case errors.Is(err, throne.ErrNotKing):
		return "❌ Only the king can cash out."
	case errors.Is(err, throne.ErrWrongState):
		return fmt.Sprintf("❌ Not possible right now: %v.", err)
	case errors.Is(err, throne.ErrOutOfRange):
		return fmt.Sprintf("❌ House edge must be between 0 and %.0f percent.", economy.MaxHouseEdge*100)
	case errors.Is(err, throne.ErrNotAdmin):
		return "❌ Only chat administrators can do that."
	case errors.Is(err, ErrUnknownAction):
		return "❌ Unknown action."
	case errors.Is(err, lifecycle.ErrPublish):
		return "❌ Could not post the game message."
	}
	return "❌ Something went wrong."
}
