package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records, tags and taggings",
		Long:  "Export records, tags and taggings as JSON or YAML. Filter by kind with -k.",
		Run:   runExport,
	}

	cmd.Flags().StringP("kind", "k", "", "Filter by kind")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	dump, err := a.store.ExportAll(cmd.Context(), kind)
	if err != nil {
		exitErr("export", err)
	}
	if err := render(cmd, dump, nil); err != nil {
		exitErr("render", err)
	}
}
