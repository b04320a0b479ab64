package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <kind> <id>",
		Short: "Delete a record and its taggings",
		Long:  "Delete a record and its taggings. Tags stay so other records keep them.",
		Args:  cobra.ExactArgs(2),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	k, err := a.kind(args[0])
	if err != nil {
		exitErr("kind", err)
	}
	if err := a.engine.Delete(cmd.Context(), k, args[1]); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"kind":%q,"id":%q}`+"\n", args[0], args[1])
}
