//go:build linux
// +build linux

package platform

import (
	"strings"
	"testing"
)

func TestHasLink(t *testing.T) {
	if !HasLink("lo") {
		t.Error("loopback not found")
	}
	if HasLink("boardhal-no-such-if0") {
		t.Error("nonexistent interface found")
	}
}

func TestForwardRules(t *testing.T) {
	rules := forwardRules("usb0", "eth0")
	if len(rules) != 3 {
		t.Fatalf("rules: got %d, want 3", len(rules))
	}

	if rules[0].table != "nat" || rules[0].chain != "POSTROUTING" {
		t.Errorf("first rule is %s/%s, want nat/POSTROUTING", rules[0].table, rules[0].chain)
	}
	if got := strings.Join(rules[0].spec, " "); got != "-o eth0 -j MASQUERADE" {
		t.Errorf("masquerade rule: got %q", got)
	}

	for _, rule := range rules[1:] {
		if rule.table != "filter" || rule.chain != "FORWARD" {
			t.Errorf("rule is %s/%s, want filter/FORWARD", rule.table, rule.chain)
		}
	}
	if got := strings.Join(rules[1].spec, " "); got != "-i usb0 -o eth0 -j ACCEPT" {
		t.Errorf("forward rule: got %q", got)
	}
}
