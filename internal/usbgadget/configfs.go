package usbgadget

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Gadget configfs layout. The paths are package variables so tests and
// boards with a different gadget root can redirect them through
// SetGadgetRoot.
var (
	GadgetRoot = "/sys/kernel/config/usb_gadget/g1"

	PullupPath         string
	VendorIDPath       string
	ProductIDPath      string
	DeviceClassPath    string
	DeviceSubClassPath string
	DeviceProtocolPath string
	DescUsePath        string
	ConfigPath         string
	FunctionsPath      string
	StringsPath        string

	// FunctionFS mount root watched while ffs functions start up.
	FunctionFSRoot = "/dev/usb-ffs"
)

func init() {
	SetGadgetRoot(GadgetRoot)
}

// SetGadgetRoot points the package at a gadget directory and derives
// every configfs node path from it.
func SetGadgetRoot(root string) {
	GadgetRoot = root
	PullupPath = filepath.Join(root, "UDC")
	VendorIDPath = filepath.Join(root, "idVendor")
	ProductIDPath = filepath.Join(root, "idProduct")
	DeviceClassPath = filepath.Join(root, "bDeviceClass")
	DeviceSubClassPath = filepath.Join(root, "bDeviceSubClass")
	DeviceProtocolPath = filepath.Join(root, "bDeviceProtocol")
	DescUsePath = filepath.Join(root, "os_desc", "use")
	ConfigPath = filepath.Join(root, "configs", "b.1")
	FunctionsPath = filepath.Join(root, "functions")
	StringsPath = filepath.Join(root, "strings", "0x409")
}

func writeGadgetFile(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %q to %s: %v", value, path, err)
	}
	return nil
}

// linkFunction exposes functions/<name> in the gadget configuration as
// configs/b.1/function<index>.
func linkFunction(name string, index int) error {
	target := filepath.Join(FunctionsPath, name)
	link := filepath.Join(ConfigPath, fmt.Sprintf("function%d", index))
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %v", link, target, err)
	}
	return nil
}

// unlinkFunctions removes every function link from the gadget
// configuration. Entries are matched by name since configfs does not
// report dirent types.
func unlinkFunctions() error {
	entries, err := os.ReadDir(ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", ConfigPath, err)
	}

	for _, entry := range entries {
		if !strings.Contains(entry.Name(), "function") {
			continue
		}
		path := filepath.Join(ConfigPath, entry.Name())
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %v", path, err)
		}
	}
	return nil
}

// SetVidPid writes the USB vendor and product ids to the gadget.
func SetVidPid(vid, pid string) Status {
	if err := writeGadgetFile(VendorIDPath, vid); err != nil {
		log.Printf("Failed to set vendor id: %v", err)
		return StatusError
	}
	if err := writeGadgetFile(ProductIDPath, pid); err != nil {
		log.Printf("Failed to set product id: %v", err)
		return StatusError
	}
	return StatusSuccess
}

// ResetGadget pulls the gadget down and strips its composition: device
// class fields and the os descriptor flag go back to zero and all
// function links are removed.
func ResetGadget() Status {
	log.Println("Resetting USB gadget")

	// The gadget may not be bound to a controller yet, so a pulldown
	// failure is not fatal.
	if err := writeGadgetFile(PullupPath, "none"); err != nil {
		log.Printf("Gadget cannot be pulled down: %v", err)
	}

	for _, path := range []string{DeviceClassPath, DeviceSubClassPath, DeviceProtocolPath, DescUsePath} {
		if err := writeGadgetFile(path, "0"); err != nil {
			log.Printf("Failed to reset gadget: %v", err)
			return StatusError
		}
	}

	if err := unlinkFunctions(); err != nil {
		log.Printf("Failed to reset gadget: %v", err)
		return StatusError
	}
	return StatusSuccess
}

// SetDeviceStrings fills in the string descriptors reported to the
// host.
func SetDeviceStrings(serial, manufacturer, product string) error {
	if err := os.MkdirAll(StringsPath, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %v", StringsPath, err)
	}

	strs := map[string]string{
		"serialnumber": serial,
		"manufacturer": manufacturer,
		"product":      product,
	}
	for node, value := range strs {
		if value == "" {
			continue
		}
		if err := writeGadgetFile(filepath.Join(StringsPath, node), value); err != nil {
			return err
		}
	}
	return nil
}

// Pullup binds the gadget to the named UDC controller, activating the
// composed functions immediately. Compositions with FunctionFS
// functions go through the FfsMonitor instead, which delays the bind
// until the userspace daemons have written their descriptors.
func Pullup(controller string) error {
	return writeGadgetFile(PullupPath, controller)
}
