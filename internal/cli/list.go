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
		Use:   "list <kind> [id]",
		Short: "List records of a kind, or the tags of one record",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runList,
	}

	cmd.Flags().String("on", tagtype.BaseName, "Tag type")
	cmd.Flags().String("scope", "", "Scope: current, parents, children or >=, <=, <>")
	cmd.Flags().Bool("all", false, "Include owned tags")
	cmd.Flags().Bool("cached", false, "Print the cached list stored on the record")
	cmd.Flags().IntP("limit", "l", 0, "Max records")
	cmd.Flags().Bool("ids-only", false, "Only output kind/id pairs")
	ownerFlags(cmd)

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	k, err := a.kind(args[0])
	if err != nil {
		exitErr("kind", err)
	}

	if len(args) == 2 {
		listTags(cmd, a, k, args[1])
		return
	}

	records, err := a.engine.Records(cmd.Context(), k, limit)
	if err != nil {
		exitErr("list", err)
	}
	if idsOnly {
		printTaggables(cmd.OutOrStdout(), records)
		return
	}
	if records == nil {
		records = []model.Taggable{}
	}
	if err := render(cmd, records, func(w io.Writer) { printTaggables(w, records) }); err != nil {
		exitErr("render", err)
	}
}

func listTags(cmd *cobra.Command, a *app, k *taggable.Kind, id string) {
	on, _ := cmd.Flags().GetString("on")
	scopeStr, _ := cmd.Flags().GetString("scope")
	all, _ := cmd.Flags().GetBool("all")
	cached, _ := cmd.Flags().GetBool("cached")
	owner := ownerFrom(cmd)
	ctx := cmd.Context()

	scope, err := tagtype.ParseScope(scopeStr)
	if err != nil {
		exitErr("parse scope", err)
	}

	r, err := a.engine.Load(ctx, k, id)
	if err != nil {
		exitErr("load record", err)
	}

	if cached {
		text, ok := r.CachedTagList(on)
		if !ok {
			exitErr("cached list", fmt.Errorf("%s does not cache %s", k.Name(), k.Type(on).ListName("")))
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return
	}

	var tags []model.Tag
	switch {
	case !owner.IsZero():
		tags, err = r.OwnerTagsOn(ctx, owner, on, taggable.InScope(scope))
	case all:
		// A zero owner reads owned and unowned tags alike.
		tags, err = r.OwnerTagsOn(ctx, model.Owner{}, on, taggable.InScope(scope))
	default:
		tags, err = r.TagsOn(ctx, on, taggable.InScope(scope))
	}
	if err != nil {
		exitErr("list tags", err)
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	if err := render(cmd, tags, func(w io.Writer) { printTags(w, tags) }); err != nil {
		exitErr("render", err)
	}
}
