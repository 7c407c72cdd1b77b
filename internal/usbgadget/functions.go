package usbgadget

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
)

// Status is the result code reported by the gadget operations.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusFunctionNotSupported
	StatusConfigurationNotSupported
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusFunctionNotSupported:
		return "function not supported"
	case StatusConfigurationNotSupported:
		return "configuration not supported"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Function selects gadget functions to compose, one bit per function.
type Function uint64

const (
	FunctionNone        Function = 0
	FunctionAdb         Function = 1 << 0
	FunctionAcm         Function = 1 << 1
	FunctionMtp         Function = 1 << 2
	FunctionPtp         Function = 1 << 3
	FunctionRndis       Function = 1 << 4
	FunctionMidi        Function = 1 << 5
	FunctionAccessory   Function = 1 << 6
	FunctionAudioSource Function = 1 << 7
	FunctionNcm         Function = 1 << 10
)

var functionNames = map[Function]string{
	FunctionAdb:         "adb",
	FunctionAcm:         "acm",
	FunctionMtp:         "mtp",
	FunctionPtp:         "ptp",
	FunctionRndis:       "rndis",
	FunctionMidi:        "midi",
	FunctionAccessory:   "accessory",
	FunctionAudioSource: "audio_source",
	FunctionNcm:         "ncm",
}

// RndisFunctionName is the configfs function instance linked for
// RNDIS. Boards with a vendor specific UDC driver override it from
// configuration.
var RndisFunctionName = "gsi.rndis"

func (f Function) String() string {
	if f == FunctionNone {
		return "none"
	}

	bits := make([]Function, 0, len(functionNames))
	for bit := range functionNames {
		if f&bit != 0 {
			bits = append(bits, bit)
		}
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	names := make([]string, 0, len(bits))
	for _, bit := range bits {
		names = append(names, functionNames[bit])
	}
	return strings.Join(names, ",")
}

// ParseFunctions turns configuration function names into a bitmask.
func ParseFunctions(names []string) (Function, error) {
	byName := make(map[string]Function, len(functionNames))
	for bit, name := range functionNames {
		byName[name] = bit
	}

	mask := FunctionNone
	for _, name := range names {
		bit, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return FunctionNone, fmt.Errorf("unknown usb function %q", name)
		}
		mask |= bit
	}
	return mask, nil
}

// addFfsFunction wires up one FunctionFS backed function: the os
// descriptor flag, the inotify watch on the function's mount dir, the
// configfs link and the endpoint files the monitor waits for.
func addFfsFunction(m *FfsMonitor, name string, endpoints int, functionCount *int) Status {
	if err := writeGadgetFile(DescUsePath, "1"); err != nil {
		log.Printf("Failed to enable os descriptors: %v", err)
		return StatusError
	}

	dir := filepath.Join(FunctionFSRoot, name)
	if err := m.AddInotifyDir(dir); err != nil {
		log.Printf("Failed to watch %s: %v", dir, err)
		return StatusError
	}

	if err := linkFunction("ffs."+name, *functionCount); err != nil {
		log.Printf("Failed to add %s: %v", name, err)
		return StatusError
	}
	*functionCount++

	for i := 1; i <= endpoints; i++ {
		m.AddEndpoint(filepath.Join(dir, fmt.Sprintf("ep%d", i)))
	}
	return StatusSuccess
}

// AddAdb composes the ADB function. The gadget is not pulled up here;
// the monitor binds it once adbd has written its descriptors to the
// endpoint files.
func AddAdb(m *FfsMonitor, functionCount *int) Status {
	log.Println("Adding usb function adb")
	return addFfsFunction(m, "adb", 2, functionCount)
}

// AddGenericAndroidFunctions composes every function selected in the
// mask except ADB. MTP and PTP are mutually exclusive; when both bits
// are set MTP wins. ffsEnabled reports whether a FunctionFS function
// was composed, functionCount advances by one per linked function.
func AddGenericAndroidFunctions(m *FfsMonitor, functions Function, ffsEnabled *bool, functionCount *int) Status {
	if functions&FunctionMtp != 0 {
		*ffsEnabled = true
		log.Println("Adding usb function mtp")
		if status := addFfsFunction(m, "mtp", 3, functionCount); status != StatusSuccess {
			return status
		}
	} else if functions&FunctionPtp != 0 {
		*ffsEnabled = true
		log.Println("Adding usb function ptp")
		if status := addFfsFunction(m, "ptp", 3, functionCount); status != StatusSuccess {
			return status
		}
	}

	if functions&FunctionAcm != 0 {
		log.Println("Adding usb function acm")
		if err := linkFunction("acm.gs6", *functionCount); err != nil {
			log.Printf("Failed to add acm: %v", err)
			return StatusError
		}
		*functionCount++
	}

	if functions&FunctionMidi != 0 {
		log.Println("Adding usb function midi")
		if err := linkFunction("midi.gs5", *functionCount); err != nil {
			log.Printf("Failed to add midi: %v", err)
			return StatusError
		}
		*functionCount++
	}

	if functions&FunctionAccessory != 0 {
		log.Println("Adding usb function accessory")
		if err := linkFunction("accessory.gs2", *functionCount); err != nil {
			log.Printf("Failed to add accessory: %v", err)
			return StatusError
		}
		*functionCount++
	}

	if functions&FunctionAudioSource != 0 {
		log.Println("Adding usb function audio_source")
		if err := linkFunction("audio_source.gs3", *functionCount); err != nil {
			log.Printf("Failed to add audio_source: %v", err)
			return StatusError
		}
		*functionCount++
	}

	if functions&FunctionRndis != 0 {
		log.Println("Adding usb function rndis")
		if err := linkFunction(RndisFunctionName, *functionCount); err != nil {
			log.Printf("Failed to add rndis: %v", err)
			return StatusError
		}
		*functionCount++
	}

	if functions&FunctionNcm != 0 {
		log.Println("Adding usb function ncm")
		if err := linkFunction("ncm.gs9", *functionCount); err != nil {
			log.Printf("Failed to add ncm: %v", err)
			return StatusError
		}
		*functionCount++
	}

	return StatusSuccess
}
