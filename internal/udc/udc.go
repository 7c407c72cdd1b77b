// Package udc discovers USB device controllers and reads the gadget
// connection state they expose through sysfs.
package udc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SysClassUDC is where the kernel registers device controllers.
var SysClassUDC = "/sys/class/udc"

// State is the connection state a device controller reports.
type State int

const (
	StateUnknown State = iota
	StateNotAttached
	StateAttached
	StatePowered
	StateDefault
	StateAddressed
	StateConfigured
	StateSuspended
)

var stateNames = map[State]string{
	StateNotAttached: "not attached",
	StateAttached:    "attached",
	StatePowered:     "powered",
	StateDefault:     "default",
	StateAddressed:   "addressed",
	StateConfigured:  "configured",
	StateSuspended:   "suspended",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseState maps the contents of a controller's state attribute. The
// kernel terminates the value with a newline.
func ParseState(raw string) State {
	value := strings.TrimSpace(raw)
	for state, name := range stateNames {
		if name == value {
			return state
		}
	}
	return StateUnknown
}

// Discover lists the device controllers registered on the board.
func Discover() ([]string, error) {
	entries, err := os.ReadDir(SysClassUDC)
	if err != nil {
		return nil, fmt.Errorf("failed to list device controllers: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// ReadState reads the current connection state of a controller.
func ReadState(controller string) (State, error) {
	data, err := os.ReadFile(filepath.Join(SysClassUDC, controller, "state"))
	if err != nil {
		return StateUnknown, fmt.Errorf("failed to read state of %s: %v", controller, err)
	}
	return ParseState(string(data)), nil
}
