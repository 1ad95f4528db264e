package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPluginsCmd(addr *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "inspect and control loaded plugin packages",
	}
	cmd.AddCommand(
		newPluginsListCmd(addr),
		newPluginsEnableCmd(addr),
		newPluginsDisableCmd(addr),
		newPluginsLoadCmd(addr),
		newPluginsInitCmd(addr),
	)
	return cmd
}

type pluginInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
}

func newPluginsListCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list registered plugin packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClient(*addr).do("GET", "/plugins", nil)
			if err != nil {
				return err
			}
			var pkgs []pluginInfo
			if err := json.Unmarshal(env.Data, &pkgs); err != nil {
				return err
			}
			for _, p := range pkgs {
				fmt.Printf("%s\t%s\tenabled=%t\n", p.Name, p.Path, p.Enabled)
			}
			return nil
		},
	}
}

func newPluginsEnableCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "enable a registered plugin package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(*addr).do("POST", "/plugins/"+args[0]+"/enable", nil)
			return err
		},
	}
}

func newPluginsDisableCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "disable a registered plugin package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(*addr).do("POST", "/plugins/"+args[0]+"/disable", nil)
			return err
		},
	}
}

func newPluginsLoadCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "load <manifest-path>",
		Short: "load a native-process plugin package from its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(*addr).do("POST", "/plugins/load", map[string]string{"manifest_path": args[0]})
			return err
		},
	}
}

func newPluginsInitCmd(addr *string) *cobra.Command {
	var profileID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "initialize the plugin manager against a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(*addr).do("POST", "/plugins/initialize", map[string]string{"profile_id": profileID})
			return err
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "default", "profile id to initialize with")
	return cmd
}
