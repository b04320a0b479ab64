package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/tagtype"
)

func init() {
	cmd := &cobra.Command{
		Use:   "untagged <kind>",
		Short: "Find records without tags of a type",
		Args:  cobra.ExactArgs(1),
		Run:   runUntagged,
	}

	cmd.Flags().String("on", tagtype.BaseName, "Tag type")
	cmd.Flags().String("scope", "", "Scope: current, parents, children or >=, <=, <>")

	RootCmd.AddCommand(cmd)
}

func runUntagged(cmd *cobra.Command, args []string) {
	on, _ := cmd.Flags().GetString("on")
	scopeStr, _ := cmd.Flags().GetString("scope")

	scope, err := tagtype.ParseScope(scopeStr)
	if err != nil {
		exitErr("parse scope", err)
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

	results, err := a.engine.Untagged(cmd.Context(), k, on, scope)
	if err != nil {
		exitErr("untagged", err)
	}
	if results == nil {
		results = []model.Taggable{}
	}
	if err := render(cmd, results, func(w io.Writer) { printTaggables(w, results) }); err != nil {
		exitErr("render", err)
	}
}
