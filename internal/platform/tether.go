package platform

// TetherManager routes traffic from a USB network function to the
// board's uplink interface.
type TetherManager interface {
	Enable(iface, uplink, address string) error
	Disable(iface, uplink string) error
}

// NewTetherManager creates a platform-specific tether manager
func NewTetherManager() TetherManager {
	return newTetherManager()
}

// HasLink reports whether a network interface exists on the board.
func HasLink(name string) bool {
	return hasLink(name)
}
