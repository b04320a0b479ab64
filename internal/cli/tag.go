package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/tagtical/internal/taggable"
	"github.com/rcliao/tagtical/internal/taglist"
	"github.com/rcliao/tagtical/internal/tagtype"
)

func init() {
	cmd := &cobra.Command{
		Use:   "tag <kind> <id> [values...]",
		Short: "Set the tag list of a record",
		Long: "Replace the tag list of one type on a record and save it. Values may carry a relevance " +
			"(\"ruby:3\"). With --add or --remove the current list is edited instead of replaced.",
		Args: cobra.MinimumNArgs(2),
		Run:  runTag,
	}

	cmd.Flags().String("on", tagtype.BaseName, "Tag type")
	cmd.Flags().String("scope", "", "Scope: current, parents, children or >=, <=, <>")
	cmd.Flags().String("name", "", "Record name")
	cmd.Flags().Bool("cascade", false, "Move allow-listed values into their own type")
	cmd.Flags().Bool("add", false, "Add values to the current list")
	cmd.Flags().Bool("remove", false, "Remove values from the current list")
	ownerFlags(cmd)

	RootCmd.AddCommand(cmd)
}

// tagResult is the saved list of one type on a record.
type tagResult struct {
	Kind  string        `json:"kind" yaml:"kind"`
	ID    string        `json:"id" yaml:"id"`
	Type  string        `json:"type" yaml:"type"`
	Owner string        `json:"owner,omitempty" yaml:"owner,omitempty"`
	Tags  *taglist.List `json:"tags" yaml:"tags"`
}

func runTag(cmd *cobra.Command, args []string) {
	on, _ := cmd.Flags().GetString("on")
	scopeStr, _ := cmd.Flags().GetString("scope")
	name, _ := cmd.Flags().GetString("name")
	cascade, _ := cmd.Flags().GetBool("cascade")
	add, _ := cmd.Flags().GetBool("add")
	remove, _ := cmd.Flags().GetBool("remove")
	owner := ownerFrom(cmd)
	ctx := cmd.Context()

	if add && remove {
		exitErr("tag", fmt.Errorf("--add and --remove are exclusive"))
	}
	scope, err := tagtype.ParseScope(scopeStr)
	if err != nil {
		exitErr("parse scope", err)
	}

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	r, err := a.record(ctx, args[0], args[1])
	if err != nil {
		exitErr("open record", err)
	}
	if name != "" {
		r.SetName(name)
	}

	opts := []taggable.ListOption{taggable.InScope(scope)}

	var list *taglist.List
	if owner.IsZero() {
		list, err = r.TagListOn(ctx, on, opts...)
	} else {
		list, err = r.OwnerTagListOn(ctx, owner, on)
	}
	if err != nil {
		exitErr("load tags", err)
	}

	values := args[2:]
	switch {
	case add:
		err = list.Add(values)
	case remove:
		err = list.Remove(values)
	default:
		list, err = taglist.From(a.engine.Options().Delimiter, values)
	}
	if err != nil {
		exitErr("parse tags", err)
	}

	if owner.IsZero() {
		if cascade {
			opts = append(opts, taggable.Cascade())
		}
		err = r.SetTagListOn(on, list, opts...)
	} else {
		err = r.SetOwnerTagListOn(owner, on, list)
	}
	if err != nil {
		exitErr("set tags", err)
	}
	if err := r.Save(ctx); err != nil {
		exitErr("save", err)
	}

	if owner.IsZero() {
		list, err = r.TagListOn(ctx, on, opts...)
	} else {
		list, err = r.OwnerTagListOn(ctx, owner, on)
	}
	if err != nil {
		exitErr("load tags", err)
	}

	res := tagResult{Kind: r.Kind().Name(), ID: r.ID(), Type: r.Kind().Type(on).Name(), Tags: list}
	if !owner.IsZero() {
		res.Owner = owner.String()
	}
	if err := render(cmd, res, func(w io.Writer) { fmt.Fprintln(w, list.Format(true)) }); err != nil {
		exitErr("render", err)
	}
}
