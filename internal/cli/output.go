package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/tagtical/internal/model"
)

// render writes v in the --format of the command. text is used for "text";
// when nil the JSON form is printed instead.
func render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch formatFlag {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		if text != nil {
			text(w)
			return nil
		}
	case "json", "":
	default:
		return fmt.Errorf("unknown format %q: use json, yaml or text", formatFlag)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

func printTaggables(w io.Writer, ts []model.Taggable) {
	for _, t := range ts {
		if t.Name != "" {
			fmt.Fprintf(w, "%s/%s\t%s\n", t.Type, t.ID, t.Name)
			continue
		}
		fmt.Fprintf(w, "%s/%s\n", t.Type, t.ID)
	}
}

func printTags(w io.Writer, tags []model.Tag) {
	values := make([]string, len(tags))
	for i, t := range tags {
		values[i] = t.Value
		if t.Relevance != nil {
			values[i] = fmt.Sprintf("%s:%g", t.Value, *t.Relevance)
		}
	}
	fmt.Fprintln(w, strings.Join(values, ", "))
}
