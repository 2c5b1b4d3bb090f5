package throne

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/coder/quartz"

	"throne/internal/combat"
	"throne/internal/economy"
	"throne/internal/lifecycle"
	"throne/internal/store"
	"throne/internal/view"
)

type State int

const (
	Empty State = iota
	Claimed
)

func (s State) String() string {
	if s == Claimed {
		return "CLAIMED"
	}
	return "EMPTY"
}

const topBalances = 5

type Resolver interface {
	Resolve(streak int) combat.Outcome
}

// Permissions answers platform questions the game cannot decide itself.
type Permissions interface {
	HasRequiredBotPermissions(ctx context.Context, chatID string) bool
	IsAdministrator(ctx context.Context, chatID, userID string) bool
}

type Publisher interface {
	Publish(ctx context.Context, chatID string, msg view.Message, apply func(context.Context)) (lifecycle.Published, error)
	Retire(ctx context.Context, chatID string) (string, bool)
}

type Player struct {
	ID   string
	Name string
}

type Deps struct {
	Store     *store.Store
	Economy   *economy.Engine
	Resolver  Resolver
	Publisher Publisher
	Perms     Permissions
	Renderer  *view.Renderer
	Clock     quartz.Clock
	Logger    *slog.Logger
}

// Service runs the per-chat throne. Every operation that reads and writes a
// chat's king or balances holds that chat's lock for its whole duration.
type Service struct {
	store    *store.Store
	econ     *economy.Engine
	resolver Resolver
	pub      Publisher
	perms    Permissions
	render   *view.Renderer
	clock    quartz.Clock
	log      *slog.Logger
	locks    *chatLocks
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = quartz.NewReal()
	}
	if d.Resolver == nil {
		d.Resolver = combat.NewRandomResolver()
	}
	if d.Renderer == nil {
		d.Renderer = view.NewRenderer("")
	}
	return &Service{
		store:    d.Store,
		econ:     d.Economy,
		resolver: d.Resolver,
		pub:      d.Publisher,
		perms:    d.Perms,
		render:   d.Renderer,
		clock:    d.Clock,
		log:      d.Logger,
		locks:    newChatLocks(),
	}
}

func (s *Service) State(chatID string) State {
	if _, ok := s.store.King(chatID); ok {
		return Claimed
	}
	return Empty
}

type ClaimResult struct {
	King      store.King
	Balance   int64
	MessageID string
}

func (s *Service) Claim(ctx context.Context, chatID string, p Player, stake int64) (ClaimResult, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	var out ClaimResult
	if _, ok := s.store.King(chatID); ok {
		return out, fmt.Errorf("%w: the throne is already claimed", ErrWrongState)
	}
	if err := economy.ValidateStake(stake); err != nil {
		return out, err
	}
	user := s.store.GetOrCreateUser(ctx, chatID, p.ID, p.Name)
	if user.Balance < stake {
		return out, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, user.Balance, stake)
	}

	king := store.King{
		HolderID:   p.ID,
		HolderName: cmp.Or(p.Name, user.DisplayName),
		Stake:      stake,
		ClaimedAt:  s.clock.Now(),
	}
	published, err := s.pub.Publish(ctx, chatID, s.render.Game(king), func(ctx context.Context) {
		out.Balance = s.store.AdjustBalance(ctx, chatID, p.ID, -stake)
		s.store.SetKing(ctx, chatID, king)
	})
	if err != nil {
		return ClaimResult{}, err
	}
	out.King = king
	out.MessageID = published.MessageID
	s.log.Info("throne claimed", "chat_id", chatID, "user_id", p.ID, "stake", stake)
	return out, nil
}

type AttackResult struct {
	Outcome           combat.Outcome
	Previous          store.King
	King              store.King
	Payout            int64
	HouseCut          int64
	ChallengerBalance int64
	HolderBalance     int64
	MessageID         string
}

// ChallengerWon reports whether the attack took the throne.
func (r AttackResult) ChallengerWon() bool {
	return r.Outcome.ChallengerWon()
}

// Attack charges the challenger the king's stake whatever the outcome, then
// resolves the fight at the king's current streak.
func (s *Service) Attack(ctx context.Context, chatID string, p Player) (AttackResult, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	var out AttackResult
	king, ok := s.store.King(chatID)
	if !ok {
		return out, fmt.Errorf("%w: there is no king to attack", ErrWrongState)
	}
	if p.ID == king.HolderID {
		return out, ErrSelfAttack
	}
	challenger := s.store.GetOrCreateUser(ctx, chatID, p.ID, p.Name)
	if challenger.Balance < king.Stake {
		return out, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, challenger.Balance, king.Stake)
	}

	outcome := s.resolver.Resolve(king.Streak)
	payout, cut := s.econ.Settle(king.Stake)

	next := king
	next.Streak++
	if outcome.ChallengerWon() {
		next = store.King{
			HolderID:   p.ID,
			HolderName: cmp.Or(p.Name, challenger.DisplayName),
			Stake:      king.Stake,
			ClaimedAt:  s.clock.Now(),
		}
	}

	published, err := s.pub.Publish(ctx, chatID, s.render.Game(next), func(ctx context.Context) {
		out.ChallengerBalance = s.store.AdjustBalance(ctx, chatID, p.ID, -king.Stake)
		s.store.SetKing(ctx, chatID, next)
		if outcome.ChallengerWon() {
			out.ChallengerBalance = s.store.AdjustBalance(ctx, chatID, p.ID, payout)
			holder, _ := s.store.User(chatID, king.HolderID)
			out.HolderBalance = holder.Balance
			return
		}
		out.HolderBalance = s.store.AdjustBalance(ctx, chatID, king.HolderID, payout)
	})
	if err != nil {
		return AttackResult{}, err
	}

	out.Outcome = outcome
	out.Previous = king
	out.King = next
	out.Payout = payout
	out.HouseCut = cut
	out.MessageID = published.MessageID
	s.log.Info("throne attacked",
		"chat_id", chatID,
		"challenger_id", p.ID,
		"holder_id", king.HolderID,
		"stake", king.Stake,
		"streak", king.Streak,
		"roll", outcome.Roll,
		"holder_won", outcome.HolderWon,
		"house_cut", cut)
	return out, nil
}

type CashoutResult struct {
	Previous  store.King
	Payout    int64
	HouseCut  int64
	Balance   int64
	MessageID string
}

func (s *Service) Cashout(ctx context.Context, chatID string, p Player) (CashoutResult, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	var out CashoutResult
	king, ok := s.store.King(chatID)
	if !ok {
		return out, fmt.Errorf("%w: %w: there is no king", ErrNotKing, ErrWrongState)
	}
	if p.ID != king.HolderID {
		return out, ErrNotKing
	}

	payout, cut := s.econ.Settle(king.Stake)
	holder := s.store.GetOrCreateUser(ctx, chatID, p.ID, p.Name)

	published, err := s.pub.Publish(ctx, chatID, s.render.NoKing(holder.Balance+payout), func(ctx context.Context) {
		out.Balance = s.store.AdjustBalance(ctx, chatID, p.ID, payout)
		s.store.ClearKing(ctx, chatID)
	})
	if err != nil {
		return CashoutResult{}, err
	}
	out.Previous = king
	out.Payout = payout
	out.HouseCut = cut
	out.MessageID = published.MessageID
	s.log.Info("throne cashed out", "chat_id", chatID, "user_id", p.ID, "payout", payout, "house_cut", cut)
	return out, nil
}

type ResetResult struct {
	// Cleared is false when the throne was already empty.
	Cleared          bool
	Force            bool
	Previous         store.King
	UserCount        int
	RetiredMessageID string
}

// Reset clears the king for an administrator. The stake is not refunded.
func (s *Service) Reset(ctx context.Context, chatID string, actor Player) (ResetResult, error) {
	if s.perms == nil || !s.perms.IsAdministrator(ctx, chatID, actor.ID) {
		return ResetResult{}, ErrNotAdmin
	}
	return s.reset(ctx, chatID, actor, false)
}

// ForceReset clears the king without consulting the administrator check.
func (s *Service) ForceReset(ctx context.Context, chatID string, actor Player) (ResetResult, error) {
	return s.reset(ctx, chatID, actor, true)
}

func (s *Service) reset(ctx context.Context, chatID string, actor Player, force bool) (ResetResult, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	out := ResetResult{Force: force}
	king, ok := s.store.King(chatID)
	if !ok {
		s.log.Info("reset on empty throne", "chat_id", chatID, "user_id", actor.ID, "force", force)
		return out, nil
	}
	s.store.ClearKing(ctx, chatID)
	out.Cleared = true
	out.Previous = king
	out.UserCount = len(s.store.Users(chatID))
	if s.pub != nil {
		out.RetiredMessageID, _ = s.pub.Retire(ctx, chatID)
	}
	s.log.Warn("throne reset",
		"chat_id", chatID,
		"user_id", actor.ID,
		"force", force,
		"holder_id", king.HolderID,
		"forfeited_stake", king.Stake)
	return out, nil
}

func (s *Service) SetHouseEdge(ctx context.Context, chatID string, actor Player, percent float64) (economy.Info, error) {
	if s.perms == nil || !s.perms.IsAdministrator(ctx, chatID, actor.ID) {
		return economy.Info{}, ErrNotAdmin
	}
	if err := s.econ.SetHouseEdge(percent); err != nil {
		return economy.Info{}, err
	}
	s.log.Info("house edge updated", "chat_id", chatID, "user_id", actor.ID, "house_edge", percent)
	return s.econ.Info(), nil
}

func (s *Service) EconomyInfo(ctx context.Context, chatID string, actor Player) (economy.Info, error) {
	if s.perms == nil || !s.perms.IsAdministrator(ctx, chatID, actor.ID) {
		return economy.Info{}, ErrNotAdmin
	}
	return s.econ.Info(), nil
}

func (s *Service) ChatStats(chatID string) view.ChatStats {
	users := s.store.Users(chatID)
	out := view.ChatStats{UserCount: len(users), Top: users[:min(len(users), topBalances)]}
	if king, ok := s.store.King(chatID); ok {
		out.King = &king
	}
	return out
}

func (s *Service) Stats() store.Stats {
	return s.store.Stats()
}

// Balance returns the player's balance, registering them on first sight.
func (s *Service) Balance(ctx context.Context, chatID string, p Player) int64 {
	return s.store.GetOrCreateUser(ctx, chatID, p.ID, p.Name).Balance
}
