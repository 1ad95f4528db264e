package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUIExtrasCmd(addr *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui-extras",
		Short: "read or replace the opaque UI extras settings blob",
	}
	cmd.AddCommand(newUIExtrasGetCmd(addr), newUIExtrasSetCmd(addr))
	return cmd
}

func newUIExtrasGetCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "print the current UI extras blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClient(*addr).do("GET", "/ui-extras", nil)
			if err != nil {
				return err
			}
			fmt.Println(string(env.Data))
			return nil
		},
	}
}

func newUIExtrasSetCmd(addr *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "replace the UI extras blob from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := os.Stdin
			if file != "-" && file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var raw json.RawMessage
			if err := json.NewDecoder(r).Decode(&raw); err != nil {
				return fmt.Errorf("parse json: %w", err)
			}
			_, err := newClient(*addr).do("PUT", "/ui-extras", raw)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "path to a JSON file, or - for stdin")
	return cmd
}
