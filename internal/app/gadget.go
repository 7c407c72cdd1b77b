package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovrld/boardhal/internal/config"
	"github.com/ovrld/boardhal/internal/service"
	"github.com/ovrld/boardhal/internal/udc"
	"github.com/ovrld/boardhal/internal/usbgadget"
)

func NewGadgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gadget",
		Short: "Manage the USB gadget composition",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "apply",
			Short: "Ask the daemon to reapply the gadget configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := service.SendReapplySignal(); err != nil {
					return fmt.Errorf("%v (start the boardhal service first)", err)
				}
				fmt.Println("Gadget configuration reapply requested")
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Pull the gadget down and strip its functions",
			RunE: func(cmd *cobra.Command, args []string) error {
				if os.Geteuid() != 0 {
					return fmt.Errorf("gadget configuration requires root")
				}
				if status := usbgadget.ResetGadget(); status != usbgadget.StatusSuccess {
					return fmt.Errorf("reset failed: %v", status)
				}
				fmt.Println("Gadget reset")
				return nil
			},
		},
		&cobra.Command{
			Use:   "vidpid [vendor-id] [product-id]",
			Short: "Set the USB vendor and product ids",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.GetConfig()
				cfg.Usb.VendorID = args[0]
				cfg.Usb.ProductID = args[1]
				if err := config.SaveConfig(); err != nil {
					return err
				}

				// Best effort on the live gadget; the saved ids apply
				// on the next composition either way.
				if status := usbgadget.SetVidPid(args[0], args[1]); status == usbgadget.StatusSuccess {
					fmt.Printf("USB ids set to %s:%s\n", args[0], args[1])
				} else {
					fmt.Println("USB ids saved; they apply when the gadget is recomposed")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "functions [name...]",
			Short: "Show or set the gadget functions",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.GetConfig()

				if len(args) == 0 {
					mask, err := usbgadget.ParseFunctions(cfg.Usb.Functions)
					if err != nil {
						return err
					}
					fmt.Printf("Configured functions: %s\n", mask)
					return nil
				}

				if _, err := usbgadget.ParseFunctions(args); err != nil {
					return err
				}
				cfg.Usb.Functions = args
				if err := config.SaveConfig(); err != nil {
					return err
				}
				fmt.Println("Functions saved; apply with 'boardhal gadget apply'")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show device controllers and their state",
			RunE: func(cmd *cobra.Command, args []string) error {
				controllers, err := udc.Discover()
				if err != nil {
					return err
				}
				if len(controllers) == 0 {
					fmt.Println("No device controllers registered")
					return nil
				}

				for _, name := range controllers {
					state, err := udc.ReadState(name)
					if err != nil {
						fmt.Printf("%s: unreadable (%v)\n", name, err)
						continue
					}
					fmt.Printf("%s: %s\n", name, state)
				}
				return nil
			},
		},
	)

	return cmd
}
