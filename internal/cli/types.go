package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "Show tag types and kinds",
	}

	levelsCmd := &cobra.Command{
		Use:   "list",
		Short: "List the tag type hierarchy",
		Run:   runTypesList,
	}

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "List configured kinds and their tag types",
		Run:   runTypesKinds,
	}

	typesCmd.AddCommand(levelsCmd, kindsCmd)
	RootCmd.AddCommand(typesCmd)
}

type levelRow struct {
	Key            string   `json:"key" yaml:"key"`
	Parent         string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Depth          int      `json:"depth" yaml:"depth"`
	PossibleValues []string `json:"possible_values,omitempty" yaml:"possible_values,omitempty"`
}

type kindRow struct {
	Name      string   `json:"name" yaml:"name"`
	Namespace string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Types     []string `json:"types" yaml:"types"`
}

func runTypesList(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	var rows []levelRow
	for _, l := range a.engine.Registry().Levels() {
		row := levelRow{Key: l.Key(), Depth: l.Depth(), PossibleValues: l.PossibleValues()}
		if p := l.Parent(); p != nil {
			row.Parent = p.Key()
		}
		rows = append(rows, row)
	}

	err = render(cmd, rows, func(w io.Writer) {
		for _, r := range rows {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", r.Depth), r.Key)
		}
	})
	if err != nil {
		exitErr("render", err)
	}
}

func runTypesKinds(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	rows := []kindRow{}
	for _, k := range a.engine.Kinds() {
		row := kindRow{Name: k.Name(), Namespace: k.Namespace()}
		for _, t := range k.Types() {
			row.Types = append(row.Types, t.ScopeName())
		}
		rows = append(rows, row)
	}

	err = render(cmd, rows, func(w io.Writer) {
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\n", r.Name, strings.Join(r.Types, ", "))
		}
	})
	if err != nil {
		exitErr("render", err)
	}
}
