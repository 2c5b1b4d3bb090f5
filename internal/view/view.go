// Package view renders the chat-facing text of the throne game.
package view

import (
	"fmt"
	"os"
	"strings"
	"time"

	"throne/internal/economy"
	"throne/internal/store"
)

type Action string

const (
	ActionAttack  Action = "attack"
	ActionCashout Action = "cashout"
)

// GameActions are attached to every game view, with or without a king.
var GameActions = []Action{ActionAttack, ActionCashout}

// Message is a rendered game view ready to publish.
type Message struct {
	Text      string
	ImagePath string
	Actions   []Action
}

type Renderer struct {
	imagePath string
}

// NewRenderer attaches imagePath to game views whenever the file exists and is non-empty.
func NewRenderer(imagePath string) *Renderer {
	return &Renderer{imagePath: imagePath}
}

func (r *Renderer) Game(king store.King) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "👑 %s – KING OF THE CHAT\n\n", Name(king.HolderName, king.HolderID))
	b.WriteString(rules(economy.Odds(king.Streak)))
	fmt.Fprintf(&b, "\n\nBet: %d coins | Streak: %d", king.Stake, king.Streak)
	if n := economy.StreakMarkers(king.Streak); n > 0 {
		b.WriteString(" " + strings.Repeat("🔥", n))
	}
	return r.message(b.String())
}

func (r *Renderer) NoKing(balance int64) Message {
	var b strings.Builder
	b.WriteString("👑 KING OF THE CHAT\n\n")
	b.WriteString(rules(economy.Odds(0)))
	fmt.Fprintf(&b, "\n\nNo king currently - be the first to claim the throne!\nYour balance: %d coins", balance)
	return r.message(b.String())
}

func (r *Renderer) message(text string) Message {
	msg := Message{Text: text, Actions: GameActions}
	if r != nil && r.imagePath != "" {
		if info, err := os.Stat(r.imagePath); err == nil && !info.IsDir() && info.Size() > 0 {
			msg.ImagePath = r.imagePath
		}
	}
	return msg
}

func rules(odds string) string {
	return fmt.Sprintf(`RULES:
1. BET /king <amount> to claim throne
2. ATTACK the King - %s odds
3. Winner takes the stake
4. CASHOUT anytime

STREAK BONUS: +5%% defense per win up to 70/30`, odds)
}

// Name picks a printable name for a participant.
func Name(displayName, id string) string {
	if displayName != "" {
		return displayName
	}
	if id != "" {
		return id
	}
	return "Unknown"
}

func ClaimNotice(name string, stake int64) string {
	return fmt.Sprintf("👑 %s is the new KING! Bet: %d", name, stake)
}

func DefeatNotice(name string) string {
	return fmt.Sprintf("💥 %s defeated the king!", name)
}

func SurviveNotice(streak int) string {
	return fmt.Sprintf("🛡️ King survived! Streak: %d", streak)
}

func CashoutNotice(payout int64) string {
	return fmt.Sprintf("💰 King cashed out %d coins", payout)
}

func ResetNotice() string {
	return "👑 Throne has been reset - ready for new games!"
}

func PinWarning() string {
	return "⚠️ Could not pin the game message. Please check bot permissions."
}

func PermissionsMissing() string {
	return "❌ BOT NEEDS ADMIN RIGHTS\n\nPlease give the bot these permissions:\n✅ Pin messages\n✅ Delete messages\n\nThen try /king again!"
}

type ResetSummary struct {
	Force     bool
	Previous  store.King
	UserCount int
}

func Reset(s ResetSummary) string {
	kind := ""
	if s.Force {
		kind = "FORCE "
	}
	return fmt.Sprintf(`🔄 KING %sRESET COMPLETED

✅ Previous King: %s
✅ Bet Amount: %d coins
✅ Streak: %d 🔥
✅ Chat Users: %d

The throne is now empty! Use /king <amount> to claim it.`,
		kind, Name(s.Previous.HolderName, s.Previous.HolderID), s.Previous.Stake, s.Previous.Streak, s.UserCount)
}

func NothingToReset() string {
	return "ℹ️ No king to reset: there is currently no king in this chat."
}

type ChatStats struct {
	UserCount int
	King      *store.King
	Top       []store.User
}

func Stats(s ChatStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 KING OF THE CHAT - STATISTICS\n\n👥 Total Users: %d\n", s.UserCount)
	if s.King != nil {
		fmt.Fprintf(&b, "\n👑 Current King: %s\n💰 Bet Amount: %d coins\n🔥 Streak: %d\n⏰ Reign Started: %s\n",
			Name(s.King.HolderName, s.King.HolderID), s.King.Stake, s.King.Streak, s.King.ClaimedAt.UTC().Format(time.RFC1123))
	} else {
		b.WriteString("\n👑 Current King: None (throne empty)\n")
	}
	if len(s.Top) > 0 {
		b.WriteString("\n💰 Top Balances:\n")
		for i, u := range s.Top {
			fmt.Fprintf(&b, "%d. %s: %d coins\n", i+1, Name(u.DisplayName, u.ID), u.Balance)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func Economy(info economy.Info) string {
	zeroSum := "no"
	if info.IsZeroSum {
		zeroSum = "yes"
	}
	return fmt.Sprintf("🏦 ECONOMY\n\nHouse edge: %.1f%%\nZero-sum: %s\n%s", info.HouseEdge*100, zeroSum, info.Description)
}

func HouseEdgeUpdated(info economy.Info) string {
	return fmt.Sprintf("🏦 House edge updated to %.1f%%", info.HouseEdge*100)
}

func Welcome() string {
	return `👑 KING OF THE CHAT

Welcome to the ultimate throne battle!

Use /king <amount> to claim the throne and start your reign!

Example: /king 100

Good luck! 🍀`
}

func Help() string {
	return `👑 KING OF THE CHAT - Help

Game Commands:
/start - Show welcome message
/help - Show this help
/king <amount> - Claim throne with bet amount (1-10000)

Admin Commands:
/kingreset - Reset current king (admins only)
/kingresetforce - Force reset without admin check (emergency)
/kingstats - Show chat statistics
/kingeconomy - View economy settings (admins only)
/sethouseedge <percent> - Set house edge 0-50 (admins only)

Game Rules:
1. BET /king 100 to claim the throne
2. ATTACK the King - winner takes the stake
3. Zero-sum by default (no coins are created)
4. CASHOUT anytime
5. STREAK BONUS: +5% defense per win up to 70/30

Permissions Required:
✅ Pin messages
✅ Delete messages`
}
