package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/waferchat/internal/state"
	"github.com/user/waferchat/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionDeleteCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

func withSessions(fn func(ctx context.Context, sessions *state.SessionStore) error) error {
	db, err := openDB(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), state.NewSessionStore(db))
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(func(ctx context.Context, sessions *state.SessionStore) error {
			list, err := sessions.List(ctx)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(list) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tTITLE\tMESSAGES\tUPDATED")
			for _, s := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					s.Key,
					s.Title,
					s.MessageCount,
					s.UpdatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return w.Flush()
		})
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a session's conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(func(ctx context.Context, sessions *state.SessionStore) error {
			sess, err := sessions.GetByKey(ctx, types.SessionKey(args[0]))
			if err != nil {
				return fmt.Errorf("session %s: %w", args[0], err)
			}
			msgs, err := sessions.Messages(ctx, sess.ID)
			if err != nil {
				return fmt.Errorf("load messages: %w", err)
			}
			fmt.Println(titleStyle.Render(sess.Title))
			r := newRenderer()
			for _, m := range msgs {
				printMessage(r, m)
			}
			return nil
		})
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(func(ctx context.Context, sessions *state.SessionStore) error {
			sess, err := sessions.GetByKey(ctx, types.SessionKey(args[0]))
			if err != nil {
				return fmt.Errorf("session %s: %w", args[0], err)
			}
			if err := sessions.Delete(ctx, sess.ID); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Session %s deleted.\n", args[0])
			return nil
		})
	},
}
