package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"throne/internal/cli"
	"throne/internal/economy"
	"throne/internal/store"
	"throne/internal/view"
)

var (
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	neutral = color.New(color.FgHiWhite)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	kingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func printSuccess(w io.Writer, msg string) {
	success.Fprintln(w, msg)
}

func printWarn(w io.Writer, msg string) {
	warn.Fprintln(w, msg)
}

func printInfo(w io.Writer, msg string) {
	neutral.Fprintln(w, msg)
}

func renderStats(w io.Writer, st *store.Store) {
	stats := st.Stats()
	fmt.Fprintln(w, boxStyle.Render(headerStyle.Render("👑 KING OF THE CHAT")+
		fmt.Sprintf("\nchats: %d\nusers: %d", stats.ChatCount, stats.UserCount)))

	ids := st.ChatIDs()
	if len(ids) == 0 {
		printInfo(w, "No chats recorded yet.")
		return
	}
	rows := [][]string{{"CHAT", "USERS", "KING", "STAKE", "STREAK"}}
	for _, id := range ids {
		row := []string{id, strconv.Itoa(len(st.Users(id))), "-", "-", "-"}
		if k, ok := st.King(id); ok {
			row[2] = view.Name(k.HolderName, k.HolderID)
			row[3] = strconv.FormatInt(k.Stake, 10)
			row[4] = strconv.Itoa(k.Streak)
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(w, table(rows))
}

func renderChat(w io.Writer, chat store.ChatState, users []store.User) {
	fmt.Fprintln(w, headerStyle.Render("Chat "+chat.ChatID))
	if chat.King != nil {
		k := chat.King
		fmt.Fprintln(w, kingStyle.Render(fmt.Sprintf("👑 %s  stake %d  streak %d  odds %s",
			view.Name(k.HolderName, k.HolderID), k.Stake, k.Streak, economy.Odds(k.Streak))))
		fmt.Fprintln(w, dimStyle.Render("reign started "+k.ClaimedAt.UTC().Format(time.RFC3339)))
	} else {
		fmt.Fprintln(w, dimStyle.Render("throne empty"))
	}
	if chat.LastMessageID != "" {
		fmt.Fprintln(w, dimStyle.Render("live message "+chat.LastMessageID))
	}

	rows := [][]string{{"#", "USER", "ID", "BALANCE"}}
	for i, u := range users {
		rows = append(rows, []string{strconv.Itoa(i + 1), view.Name(u.DisplayName, u.ID), u.ID, strconv.FormatInt(u.Balance, 10)})
	}
	fmt.Fprintln(w, table(rows))
}

// table renders rows as left-aligned columns; the first row is the header.
func table(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	var b strings.Builder
	for n, r := range rows {
		cells := make([]string, len(r))
		for i, cell := range r {
			cells[i] = lipgloss.NewStyle().Width(widths[i] + 2).Render(cell)
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top, cells...)
		if n == 0 {
			line = headerStyle.Render(line)
		}
		b.WriteString(line)
		if n < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderStatus(ctx context.Context, w io.Writer, c *cli.Client, chatID string) error {
	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("bot unreachable at %s: %w", c.BaseURL, err)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	info, err := c.Economy(ctx)
	if err != nil {
		return err
	}
	printSuccess(w, fmt.Sprintf("Bot up for %s", time.Duration(health.UptimeSeconds)*time.Second))
	fmt.Fprintln(w, boxStyle.Render(fmt.Sprintf("chats: %d\nusers: %d\n%s", stats.ChatCount, stats.UserCount, info.Description)))
	if chatID == "" {
		return nil
	}

	chat, err := c.Chat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.King != nil {
		fmt.Fprintln(w, kingStyle.Render(fmt.Sprintf("👑 %s  stake %d  streak %d",
			view.Name(chat.King.HolderName, chat.King.HolderID), chat.King.Stake, chat.King.Streak)))
	} else {
		fmt.Fprintln(w, dimStyle.Render("throne empty"))
	}
	rows := [][]string{{"#", "USER", "BALANCE"}}
	for i, u := range chat.Top {
		rows = append(rows, []string{strconv.Itoa(i + 1), view.Name(u.DisplayName, u.ID), strconv.FormatInt(u.Balance, 10)})
	}
	fmt.Fprintln(w, table(rows))
	return nil
}
