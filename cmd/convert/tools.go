package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aliskhannn/image-converter/internal/catalog"
	"github.com/aliskhannn/image-converter/internal/model"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools by section",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		for _, s := range catalog.Sections() {
			fmt.Fprintln(out, s.Name)
			for _, t := range s.Tools {
				fmt.Fprintf(out, "  %-16s %-24s accepts %s\n", t.ID, t.Title, strings.Join(catalog.AllowedExtensions(t.From), ", "))
				if kind := model.ExpectedSettings(t.Action); kind != model.SettingsNone {
					fmt.Fprintf(out, "  %-16s settings: %s\n", "", kind)
				}
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
