//go:build !linux
// +build !linux

package platform

import "fmt"

type stubTetherManager struct{}

func newTetherManager() TetherManager {
	return &stubTetherManager{}
}

func hasLink(name string) bool {
	return false
}

func (tm *stubTetherManager) Enable(iface, uplink, address string) error {
	return fmt.Errorf("usb tethering requires linux")
}

func (tm *stubTetherManager) Disable(iface, uplink string) error {
	return fmt.Errorf("usb tethering requires linux")
}
