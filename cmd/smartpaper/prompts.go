// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartpaper/internal/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts [name]",
	Short: "List prompts, or print one prompt's template",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("version")
		lib := prompt.Load(loadConfig().Prompts)

		if len(args) == 1 {
			tmpl, err := lib.Get(args[0], version)
			if err != nil {
				return err
			}
			fmt.Println(tmpl)
			return nil
		}

		prompts, err := lib.List(version)
		if err != nil {
			return err
		}
		if len(prompts) == 0 {
			fmt.Println("No prompts found.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDESCRIPTION")
		for _, p := range prompts {
			fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Description)
		}
		return tw.Flush()
	},
}

func init() {
	promptsCmd.Flags().String("version", "text", "prompt version: text or image_text")
	rootCmd.AddCommand(promptsCmd)
}
