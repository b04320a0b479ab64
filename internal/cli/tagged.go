package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/taggable"
	"github.com/rcliao/tagtical/internal/tagtype"
)

func init() {
	cmd := &cobra.Command{
		Use:   "tagged <kind> [values...]",
		Short: "Find records by tag",
		Long: "Find records of a kind tagged with every value. --any matches at least one value, " +
			"--exclude none of them and --match-all exactly the given values.",
		Args: cobra.MinimumNArgs(1),
		Run:  runTagged,
	}

	cmd.Flags().String("on", "", "Tag type (default: every type)")
	cmd.Flags().String("scope", "", "Scope of --on: current, parents, children or >=, <=, <>")
	cmd.Flags().Bool("any", false, "Match records with any value")
	cmd.Flags().Bool("exclude", false, "Match records with none of the values")
	cmd.Flags().Bool("match-all", false, "Match records tagged with exactly the values")
	ownerFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runTagged(cmd *cobra.Command, args []string) {
	on, _ := cmd.Flags().GetString("on")
	scopeStr, _ := cmd.Flags().GetString("scope")
	anyFlag, _ := cmd.Flags().GetBool("any")
	exclude, _ := cmd.Flags().GetBool("exclude")
	matchAll, _ := cmd.Flags().GetBool("match-all")
	owner := ownerFrom(cmd)

	opts := []taggable.QueryOption{}
	modes := 0
	if anyFlag {
		opts = append(opts, taggable.Any())
		modes++
	}
	if exclude {
		opts = append(opts, taggable.Exclude())
		modes++
	}
	if matchAll {
		opts = append(opts, taggable.MatchAll())
		modes++
	}
	if modes > 1 {
		exitErr("tagged", fmt.Errorf("--any, --exclude and --match-all are exclusive"))
	}
	if on != "" {
		opts = append(opts, taggable.On(on))
	}
	if scopeStr != "" {
		scope, err := tagtype.ParseScope(scopeStr)
		if err != nil {
			exitErr("parse scope", err)
		}
		opts = append(opts, taggable.WithScope(scope))
	}
	if !owner.IsZero() {
		opts = append(opts, taggable.TaggedBy(owner))
	}

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	k, err := a.kind(args[0])
	if err != nil {
		exitErr("kind", err)
	}

	results, err := a.engine.TaggedWith(cmd.Context(), k, args[1:], opts...)
	if err != nil {
		exitErr("tagged", err)
	}
	if results == nil {
		results = []model.Taggable{}
	}
	if err := render(cmd, results, func(w io.Writer) { printTaggables(w, results) }); err != nil {
		exitErr("render", err)
	}
}
