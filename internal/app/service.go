package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovrld/boardhal/internal/service"
)

func NewServiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the boardhal daemon service",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install the system service",
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := service.NewServiceManager()
				if err != nil {
					return err
				}
				if err := sm.Install(); err != nil {
					return fmt.Errorf("failed to install service: %v", err)
				}
				fmt.Println("Service installed and enabled for auto-start")
				return nil
			},
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Uninstall the system service",
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := service.NewServiceManager()
				if err != nil {
					return err
				}
				if err := sm.Uninstall(); err != nil {
					return fmt.Errorf("failed to uninstall service: %v", err)
				}
				fmt.Println("Service uninstalled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "start",
			Short: "Start the daemon service",
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := service.NewServiceManager()
				if err != nil {
					return err
				}
				return sm.Start()
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the daemon service",
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := service.NewServiceManager()
				if err != nil {
					return err
				}
				return sm.Stop()
			},
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Restart the daemon service",
			RunE: func(cmd *cobra.Command, args []string) error {
				sm, err := service.NewServiceManager()
				if err != nil {
					return err
				}
				return sm.Restart()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Check daemon status",
			RunE: func(cmd *cobra.Command, args []string) error {
				if running, pid := service.GetDaemonStatus(); running {
					fmt.Printf("Daemon status: Running (pid %d)\n", pid)
				} else {
					fmt.Println("Daemon status: Stopped")
				}

				if sm, err := service.NewServiceManager(); err == nil {
					if status, err := sm.Status(); err == nil {
						fmt.Printf("Service status: %s\n", status)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Run the daemon in the foreground",
			RunE: func(cmd *cobra.Command, args []string) error {
				if os.Geteuid() != 0 {
					return fmt.Errorf("daemon must be run as root")
				}
				sm, err := service.NewServiceManager()
				if err != nil {
					return err
				}
				return sm.Run()
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Ask the daemon to dump its state",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := service.SendDumpSignal(); err != nil {
					return err
				}
				fmt.Printf("State dump requested, see %s\n", service.DumpFile)
				return nil
			},
		},
	)

	return cmd
}
