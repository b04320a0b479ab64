package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taggable"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  "Show database statistics. With --on, count how often each tag of a type is used instead.",
		Run:   runStats,
	}

	cmd.Flags().String("on", "", "Count taggings per tag of this type")
	cmd.Flags().String("kind", "", "Restrict tag counts to one kind")
	cmd.Flags().Int("at-least", 0, "Only tags used at least this often")
	cmd.Flags().IntP("limit", "l", 0, "Max tags")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	on, _ := cmd.Flags().GetString("on")
	kind, _ := cmd.Flags().GetString("kind")
	atLeast, _ := cmd.Flags().GetInt("at-least")
	limit, _ := cmd.Flags().GetInt("limit")
	ctx := cmd.Context()

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	if on == "" {
		stats, err := a.store.Stats(ctx)
		if err != nil {
			exitErr("stats", err)
		}
		if err := render(cmd, stats, nil); err != nil {
			exitErr("render", err)
		}
		return
	}

	var k *taggable.Kind
	if kind != "" {
		if k, err = a.kind(kind); err != nil {
			exitErr("kind", err)
		}
	}
	counts, err := a.engine.TagCounts(ctx, k, on, atLeast, limit)
	if err != nil {
		exitErr("tag counts", err)
	}
	if counts == nil {
		counts = []store.TagCount{}
	}
	err = render(cmd, counts, func(w io.Writer) {
		for _, c := range counts {
			fmt.Fprintf(w, "%s\t%s\t%d\n", c.Type, c.Value, c.Count)
		}
	})
	if err != nil {
		exitErr("render", err)
	}
}
