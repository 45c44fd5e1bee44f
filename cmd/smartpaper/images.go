// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartpaper/internal/store"
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage the image store",
	Long: `Images manages the page images references are resolved against.
Images are keyed by paper ID and file basename.`,
}

var imagesImportCmd = &cobra.Command{
	Use:   "import <paper-id> <dir>",
	Short: "Import every image file in a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		st, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := store.ImportDir(context.Background(), st, args[0], args[1], cfg.Store.ImportWorkers)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d image(s) for %s\n", n, args[0])
		return nil
	},
}

var imagesListCmd = &cobra.Command{
	Use:   "list <paper-id>",
	Short: "List the image keys stored for a paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(loadConfig().Store)
		if err != nil {
			return err
		}
		defer st.Close()

		keys, err := st.ImageKeys(context.Background(), args[0])
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var imagesGetCmd = &cobra.Command{
	Use:   "get <paper-id> <key>",
	Short: "Write a stored image to a file or stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")

		st, err := store.Open(loadConfig().Store)
		if err != nil {
			return err
		}
		defer st.Close()

		data, mime, err := st.GetImage(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		if out == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%s, %d bytes)\n", out, mime, len(data))
		return nil
	},
}

var imagesRemoveCmd = &cobra.Command{
	Use:   "rm <paper-id> <key>",
	Short: "Delete a stored image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(loadConfig().Store)
		if err != nil {
			return err
		}
		defer st.Close()

		ok, err := st.DeleteImage(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s/%s: %w", args[0], args[1], store.ErrNotFound)
		}
		return nil
	},
}

func init() {
	imagesGetCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	imagesCmd.AddCommand(imagesImportCmd, imagesListCmd, imagesGetCmd, imagesRemoveCmd)
	rootCmd.AddCommand(imagesCmd)
}
