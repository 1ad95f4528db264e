package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "drain recent log records from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClient(*addr).do("GET", "/logs", nil)
			if err != nil {
				return err
			}
			fmt.Println(string(env.Data))
			return nil
		},
	}
}
