//go:build linux
// +build linux

package platform

import (
	"fmt"
	"log"

	"github.com/coreos/go-iptables/iptables"
	"github.com/vishvananda/netlink"
)

type linuxTetherManager struct{}

func newTetherManager() TetherManager {
	return &linuxTetherManager{}
}

func hasLink(name string) bool {
	_, err := netlink.LinkByName(name)
	return err == nil
}

// Enable addresses the gadget interface, brings it up and installs the
// forwarding rules towards the uplink.
func (tm *linuxTetherManager) Enable(iface, uplink, address string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("failed to find interface %s: %v", iface, err)
	}

	addr, err := netlink.ParseAddr(address)
	if err != nil {
		return fmt.Errorf("invalid tether address %s: %v", address, err)
	}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("failed to address %s: %v", iface, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up %s: %v", iface, err)
	}

	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("failed to open iptables: %v", err)
	}
	for _, rule := range forwardRules(iface, uplink) {
		if err := ipt.AppendUnique(rule.table, rule.chain, rule.spec...); err != nil {
			return fmt.Errorf("failed to add %s rule: %v", rule.chain, err)
		}
	}

	log.Printf("Tethering enabled: %s -> %s (%s)", iface, uplink, address)
	return nil
}

// Disable removes the forwarding rules. The interface itself goes away
// with the gadget function, so it is left alone.
func (tm *linuxTetherManager) Disable(iface, uplink string) error {
	ipt, err := iptables.New()
	if err != nil {
		return fmt.Errorf("failed to open iptables: %v", err)
	}

	for _, rule := range forwardRules(iface, uplink) {
		if err := ipt.DeleteIfExists(rule.table, rule.chain, rule.spec...); err != nil {
			log.Printf("Failed to remove %s rule: %v", rule.chain, err)
		}
	}

	log.Printf("Tethering disabled: %s -> %s", iface, uplink)
	return nil
}

type natRule struct {
	table string
	chain string
	spec  []string
}

func forwardRules(iface, uplink string) []natRule {
	return []natRule{
		{"nat", "POSTROUTING", []string{"-o", uplink, "-j", "MASQUERADE"}},
		{"filter", "FORWARD", []string{"-i", iface, "-o", uplink, "-j", "ACCEPT"}},
		{"filter", "FORWARD", []string{"-i", uplink, "-o", iface, "-m", "state", "--state", "RELATED,ESTABLISHED", "-j", "ACCEPT"}},
	}
}
