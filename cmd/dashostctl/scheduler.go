package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSchedulerCmd(addr *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "inspect and control the task scheduler",
	}
	cmd.AddCommand(
		newSchedulerInfoCmd(addr),
		newSchedulerEnableCmd(addr, true),
		newSchedulerEnableCmd(addr, false),
		newSchedulerForceStartCmd(addr),
		newSchedulerRequestStopCmd(addr),
		newSchedulerTasksCmd(addr),
	)
	return cmd
}

func newSchedulerInfoCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "print the scheduler's current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClient(*addr).do("GET", "/scheduler/info", nil)
			if err != nil {
				return err
			}
			fmt.Println(string(env.Data))
			return nil
		},
	}
}

func newSchedulerEnableCmd(addr *string, enable bool) *cobra.Command {
	use := "disable"
	short := "disable the scheduler"
	if enable {
		use = "enable"
		short = "enable the scheduler"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(*addr).do("POST", "/scheduler/enabled", map[string]bool{"enabled": enable})
			return err
		},
	}
}

func newSchedulerForceStartCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "force-start",
		Short: "dispatch the soonest-due task immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(*addr).do("POST", "/scheduler/force-start", nil)
			return err
		},
	}
}

func newSchedulerRequestStopCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "request-stop",
		Short: "signal the currently running task to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newClient(*addr).do("POST", "/scheduler/request-stop", nil)
			return err
		},
	}
}

func newSchedulerTasksCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "list currently tracked tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newClient(*addr).do("GET", "/scheduler/tasks", nil)
			if err != nil {
				return err
			}
			fmt.Println(string(env.Data))
			return nil
		},
	}
}
