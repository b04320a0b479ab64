package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/tagtype"
)

func init() {
	cmd := &cobra.Command{
		Use:   "related <kind> <id>",
		Short: "Find records sharing tags with a record",
		Long: "Find records sharing tag values of one type with a record, most shared first. " +
			"With --result the values are matched against another tag type of the target kind.",
		Args: cobra.ExactArgs(2),
		Run:  runRelated,
	}

	cmd.Flags().String("on", tagtype.BaseName, "Tag type of the record to match on")
	cmd.Flags().String("target", "", "Kind of the results (default: the record's kind)")
	cmd.Flags().String("result", "", "Tag type of the results to match against")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRelated(cmd *cobra.Command, args []string) {
	on, _ := cmd.Flags().GetString("on")
	target, _ := cmd.Flags().GetString("target")
	result, _ := cmd.Flags().GetString("result")
	limit, _ := cmd.Flags().GetInt("limit")
	ctx := cmd.Context()

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	k, err := a.kind(args[0])
	if err != nil {
		exitErr("kind", err)
	}
	r, err := a.engine.Load(ctx, k, args[1])
	if err != nil {
		exitErr("load record", err)
	}

	tk := k
	if target != "" {
		if tk, err = a.kind(target); err != nil {
			exitErr("kind", err)
		}
	}

	var related []store.Related
	if result != "" {
		related, err = r.MatchingContexts(ctx, on, result, tk, limit)
	} else {
		related, err = r.Related(ctx, on, tk, limit)
	}
	if err != nil {
		exitErr("related", err)
	}
	if related == nil {
		related = []store.Related{}
	}

	err = render(cmd, related, func(w io.Writer) {
		for _, rel := range related {
			fmt.Fprintf(w, "%s/%s\t%d\n", rel.Type, rel.ID, rel.Count)
		}
	})
	if err != nil {
		exitErr("render", err)
	}
}
