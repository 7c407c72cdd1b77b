package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovrld/boardhal/internal/config"
	"github.com/ovrld/boardhal/internal/powerstats"
	"github.com/ovrld/boardhal/internal/service"
)

func NewPowerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Query power state residency",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "entities",
			Short: "List the configured power entities",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc := service.BuildPowerService(config.GetConfig())
				infos, err := svc.EntityInfos()
				if err != nil {
					return err
				}

				for _, info := range infos {
					fmt.Printf("%d. %s (%s)\n", info.ID, info.Name, info.Type)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "states [entity-id...]",
			Short: "Show entity state spaces",
			RunE: func(cmd *cobra.Command, args []string) error {
				ids, err := parseEntityIDs(args)
				if err != nil {
					return err
				}

				svc := service.BuildPowerService(config.GetConfig())
				spaces, err := svc.StateSpaces(ids)
				for _, space := range spaces {
					fmt.Printf("Entity %d:\n", space.EntityID)
					for _, state := range space.States {
						fmt.Printf("  %d: %s\n", state.ID, state.Name)
					}
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "residency [entity-id...]",
			Short: "Show accumulated state residency",
			RunE: func(cmd *cobra.Command, args []string) error {
				ids, err := parseEntityIDs(args)
				if err != nil {
					return err
				}

				svc := service.BuildPowerService(config.GetConfig())
				return printResidency(svc, ids)
			},
		},
		&cobra.Command{
			Use:   "snapshot",
			Short: "Print the current residency as key=value pairs",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc := service.BuildPowerService(config.GetConfig())
				data, err := powerstats.Snapshot(svc)
				if err != nil {
					return err
				}
				return powerstats.WriteSnapshot(os.Stdout, data)
			},
		},
		newPowerRecordCommand(),
		&cobra.Command{
			Use:   "dump",
			Short: "Dump the full residency table",
			RunE: func(cmd *cobra.Command, args []string) error {
				svc := service.BuildPowerService(config.GetConfig())
				return powerstats.DumpResidency(os.Stdout, svc)
			},
		},
	)

	return cmd
}

func newPowerRecordCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "record [seconds]",
		Short: "Measure residency deltas over an interval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secs, err := strconv.Atoi(args[0])
			if err != nil || secs <= 0 {
				return fmt.Errorf("invalid interval %q", args[0])
			}

			svc := service.BuildPowerService(config.GetConfig())
			start, err := powerstats.Snapshot(svc)
			if err != nil {
				return err
			}
			startAt := time.Now()

			time.Sleep(time.Duration(secs) * time.Second)

			end, err := powerstats.Snapshot(svc)
			if err != nil {
				return err
			}

			w := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %v", output, err)
				}
				defer f.Close()
				w = f
			}
			return powerstats.WriteInterval(w, powerstats.Delta(start, end), time.Since(startAt))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the measurement to a file instead of stdout")
	return cmd
}

func parseEntityIDs(args []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid entity id %q", arg)
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}

// printResidency resolves entity and state names so the counters read
// like the kernel files they came from. Partial results still print
// before the error is reported.
func printResidency(svc *powerstats.Service, ids []uint32) error {
	entityNames := make(map[uint32]string)
	if infos, err := svc.EntityInfos(); err == nil {
		for _, info := range infos {
			entityNames[info.ID] = info.Name
		}
	}

	stateNames := make(map[uint32]map[uint32]string)
	if spaces, err := svc.StateSpaces(nil); err == nil {
		for _, space := range spaces {
			names := make(map[uint32]string, len(space.States))
			for _, state := range space.States {
				names[state.ID] = state.Name
			}
			stateNames[space.EntityID] = names
		}
	}

	results, err := svc.StateResidencies(ids)
	for _, result := range results {
		fmt.Printf("Entity %d (%s):\n", result.EntityID, entityNames[result.EntityID])
		for _, r := range result.Residencies {
			fmt.Printf("  %-16s time=%dms count=%d last=%dms\n",
				stateNames[result.EntityID][r.StateID], r.TotalTimeMs, r.TotalCount, r.LastEntryTimestampMs)
		}
	}
	return err
}
