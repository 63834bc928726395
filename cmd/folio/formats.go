package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/citation"
)

func init() {
	rootCmd.AddCommand(formatsCmd)
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List citation formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formats := citation.Formats()
		if humanOutput {
			for _, f := range formats {
				marker := " "
				if f.Key == citation.DefaultFormat {
					marker = "*"
				}
				outputHuman("%s %-8s %-8s %s\n", marker, f.Key, f.Name, f.Description)
			}
			return nil
		}
		outputJSON(formats)
		return nil
	},
}
