package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/tagtical/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import records, tags and taggings",
		Long:  "Import a dump produced by export from a file or stdin. YAML is read when --format is yaml.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		exitErr("read input", err)
	}

	var dump store.Export
	if formatFlag == "yaml" {
		err = yaml.Unmarshal(data, &dump)
	} else {
		err = json.Unmarshal(data, &dump)
	}
	if err != nil {
		exitErr("parse "+formatFlag, err)
	}

	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer a.Close()

	imported, err := a.store.Import(cmd.Context(), &dump)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
