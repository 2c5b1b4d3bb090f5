package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"throne/internal/cli"
	"throne/internal/config"
	"throne/internal/db"
	"throne/internal/economy"
	"throne/internal/store"
)

type storeFlags struct {
	path        string
	databaseURL string
}

type apiFlags struct {
	baseURL string
}

func main() {
	cfg := config.LoadCLIFromEnv()
	flags := &storeFlags{path: cfg.StorePath, databaseURL: cfg.DatabaseURL}
	remote := &apiFlags{baseURL: cfg.APIBaseURL}

	root := &cobra.Command{
		Use:          "throne",
		Short:        "Operator tools for the King of the Chat store",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.path, "store", flags.path, "path to the JSON store file")
	root.PersistentFlags().StringVar(&flags.databaseURL, "database-url", flags.databaseURL, "postgres url; takes precedence over --store")

	root.AddCommand(
		newStatsCmd(flags),
		newChatCmd(flags),
		newResetCmd(flags),
		newStatusCmd(remote),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the durable record. Writes made here race with a running
// bot, so stop the bot first.
func openStore(ctx context.Context, flags *storeFlags) (*store.Store, func(), error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if url := strings.TrimSpace(flags.databaseURL); url != "" {
		pool, err := db.Connect(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		backend := store.NewPostgresBackend(pool)
		if err := backend.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store.Open(ctx, backend, economy.StartingBalance, logger), pool.Close, nil
	}
	if _, err := os.Stat(flags.path); err != nil {
		return nil, nil, fmt.Errorf("store file: %w", err)
	}
	return store.Open(ctx, store.NewFileBackend(flags.path), economy.StartingBalance, logger), func() {}, nil
}

func newStatsCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show totals and every chat's throne",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, closeStore, err := openStore(ctx, flags)
			if err != nil {
				return err
			}
			defer closeStore()
			renderStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newChatCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <chat-id>",
		Short: "Inspect one chat: king, message pointer and balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, closeStore, err := openStore(ctx, flags)
			if err != nil {
				return err
			}
			defer closeStore()
			chat, ok := st.Chat(args[0])
			if !ok {
				return fmt.Errorf("chat %s not found", args[0])
			}
			renderChat(cmd.OutOrStdout(), chat, st.Users(args[0]))
			return nil
		},
	}
}

func newResetCmd(flags *storeFlags) *cobra.Command {
	var wipe bool
	cmd := &cobra.Command{
		Use:   "reset <chat-id>",
		Short: "Clear a chat's king while the bot is stopped (the stake is not refunded)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, closeStore, err := openStore(ctx, flags)
			if err != nil {
				return err
			}
			defer closeStore()
			return resetChat(ctx, cmd.OutOrStdout(), st, args[0], wipe)
		},
	}
	cmd.Flags().BoolVar(&wipe, "wipe", false, "also forget every balance recorded for the chat")
	return cmd
}

func resetChat(ctx context.Context, w io.Writer, st *store.Store, chatID string, wipe bool) error {
	if _, ok := st.Chat(chatID); !ok {
		return fmt.Errorf("chat %s not found", chatID)
	}
	if wipe {
		st.ResetChat(ctx, chatID)
		printSuccess(w, fmt.Sprintf("Chat %s wiped.", chatID))
		return nil
	}
	king, hadKing := st.King(chatID)
	msgID, hadMsg := st.LastMessageID(chatID)
	st.ClearKing(ctx, chatID)
	st.ClearLastMessageID(ctx, chatID)

	if !hadKing {
		printInfo(w, fmt.Sprintf("Chat %s has no king.", chatID))
	} else {
		printSuccess(w, fmt.Sprintf("Cleared king %s (stake %d, streak %d) in chat %s.",
			king.HolderID, king.Stake, king.Streak, chatID))
	}
	if hadMsg {
		printWarn(w, fmt.Sprintf("Message %s may still be pinned in the channel; remove it by hand.", msgID))
	}
	return nil
}

func newStatusCmd(remote *apiFlags) *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running bot over its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return renderStatus(ctx, cmd.OutOrStdout(), cli.NewClient(remote.baseURL), chatID)
		},
	}
	cmd.Flags().StringVar(&remote.baseURL, "api", remote.baseURL, "bot API base url")
	cmd.Flags().StringVar(&chatID, "chat", "", "also show this chat")
	return cmd
}
