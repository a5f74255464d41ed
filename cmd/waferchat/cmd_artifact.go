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
	rootCmd.AddCommand(artifactCmd)
	artifactCmd.AddCommand(artifactListCmd, artifactShowCmd)
	artifactShowCmd.Flags().BoolVar(&artifactRaw, "raw", false, "print content without rendering")
}

var artifactRaw bool

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Browse documents created by the assistant",
}

func withArtifacts(fn func(ctx context.Context, artifacts *state.ArtifactStore) error) error {
	db, err := openDB(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), state.NewArtifactStore(db))
}

var artifactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artifacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArtifacts(func(ctx context.Context, artifacts *state.ArtifactStore) error {
			list, err := artifacts.List(ctx)
			if err != nil {
				return fmt.Errorf("list artifacts: %w", err)
			}
			if len(list) == 0 {
				fmt.Println("No artifacts found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tTITLE\tUPDATED")
			for _, a := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Type, a.Title, a.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		})
	},
}

var artifactShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArtifacts(func(ctx context.Context, artifacts *state.ArtifactStore) error {
			a, err := artifacts.Get(ctx, types.ArtifactID(args[0]))
			if err != nil {
				return err
			}
			if artifactRaw {
				fmt.Print(a.Content)
				return nil
			}
			fmt.Println(titleStyle.Render(a.Title))
			fmt.Println(renderMarkdown(newRenderer(), artifactMarkdown(a)))
			return nil
		})
	},
}

// artifactMarkdown wraps code artifacts in a fence so they render as code.
func artifactMarkdown(a *types.Artifact) string {
	if a.Type == types.ArtifactCode {
		return "```\n" + a.Content + "\n```"
	}
	return a.Content
}
