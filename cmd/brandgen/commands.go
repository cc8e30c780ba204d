package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/cozy-creator/brandgen/internal/commands"

	"github.com/spf13/cobra"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List every command with its description",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _ := commands.New(commands.Deps{})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		group := ""
		for _, info := range registry.List() {
			if info.Group != group {
				if group != "" {
					fmt.Fprintln(w)
				}
				group = info.Group
				fmt.Fprintf(w, "%s:\n", group)
			}
			fmt.Fprintf(w, "  %s\t%s\n", info.Name, info.Description)
		}
		return w.Flush()
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema <command>",
	Short: "Print the JSON Schema of a command's input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _ := commands.New(commands.Deps{})

		schema, err := registry.Schema(args[0])
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
