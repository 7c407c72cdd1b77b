package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovrld/boardhal/internal/config"
	"github.com/ovrld/boardhal/internal/service"
	"github.com/ovrld/boardhal/internal/system"
	"github.com/ovrld/boardhal/internal/udc"
	"github.com/ovrld/boardhal/internal/usbgadget"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "status",
		Short:                 "Show comprehensive board status",
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()

			fmt.Println("Boardhal Status")
			fmt.Println("===============")

			// Gadget overview
			fmt.Println("\nUSB Gadget:")
			fmt.Printf("  IDs: %s:%s\n", cfg.Usb.VendorID, cfg.Usb.ProductID)
			if mask, err := usbgadget.ParseFunctions(cfg.Usb.Functions); err == nil {
				fmt.Printf("  Functions: %s\n", mask)
			}
			fmt.Printf("  Tethering: %t\n", cfg.Usb.Tether.Enabled)
			if controllers, err := udc.Discover(); err == nil && len(controllers) > 0 {
				for _, name := range controllers {
					if state, err := udc.ReadState(name); err == nil {
						fmt.Printf("  Controller %s: %s\n", name, state)
					}
				}
			} else {
				fmt.Println("  No device controllers registered")
			}

			// Power entities
			fmt.Println("\nPower Entities:")
			svc := service.BuildPowerService(cfg)
			if infos, err := svc.EntityInfos(); err == nil {
				for _, info := range infos {
					fmt.Printf("  %d. %s (%s)\n", info.ID, info.Name, info.Type)
				}
			} else {
				fmt.Println("  None configured")
			}

			// Daemon status
			fmt.Println("\nDaemon:")
			if running, pid := service.GetDaemonStatus(); running {
				fmt.Printf("  Status: Running (pid %d)\n", pid)
			} else {
				fmt.Println("  Status: Stopped")
			}
			fmt.Printf("  Config: %s\n", service.GetServiceConfigPath())

			// System information
			fmt.Println("\nSystem Information:")
			if sysInfo, err := system.GetSystemInfo(); err == nil {
				if hostname, ok := sysInfo["hostname"].(string); ok {
					fmt.Printf("  Hostname: %s\n", hostname)
				}
				if kernel, ok := sysInfo["kernel"].(string); ok {
					fmt.Printf("  Kernel: %s\n", kernel)
				}
				if cpuPercent, ok := sysInfo["cpu_percent"].(float64); ok {
					fmt.Printf("  CPU Usage: %.2f%%\n", cpuPercent)
				}
				if memPercent, ok := sysInfo["memory_percent"].(float64); ok {
					fmt.Printf("  Memory Usage: %.2f%%\n", memPercent)
				}
			}
			if uptime, err := system.Uptime(); err == nil {
				fmt.Printf("  Uptime: %s\n", uptime)
			}

			return nil
		},
	}
}
