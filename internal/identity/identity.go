// Package identity derives stable per-board identifiers: the serial
// number reported over USB and locally administered MAC addresses for
// the network gadget functions.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

var machineIDFile = "/etc/machine-id"

func machineID() (string, error) {
	data, err := os.ReadFile(machineIDFile)
	if err != nil {
		return "", fmt.Errorf("failed to read machine id: %v", err)
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", fmt.Errorf("machine id is empty")
	}
	return id, nil
}

// SerialNumber derives the USB serial number from the board's machine
// id. The value is stable across reboots and distinct per board.
func SerialNumber() (string, error) {
	id, err := machineID()
	if err != nil {
		return "", err
	}

	// Use PBKDF2 for key derivation
	salt := []byte("boardhal-serial-v1")
	key := pbkdf2.Key([]byte(id), salt, 10000, 8, sha256.New)

	return hex.EncodeToString(key), nil
}

// MACPair derives the host and device side MAC addresses for a network
// function such as rndis or ncm. Both addresses are unicast and carry
// the locally administered bit.
func MACPair(function string) (hostAddr, devAddr string, err error) {
	id, err := machineID()
	if err != nil {
		return "", "", err
	}

	hostAddr = deriveMAC(id, function+"-host")
	devAddr = deriveMAC(id, function+"-dev")
	return hostAddr, devAddr, nil
}

func deriveMAC(id, purpose string) string {
	salt := []byte("boardhal-mac-" + purpose)
	key := pbkdf2.Key([]byte(id), salt, 10000, 6, sha256.New)

	// Locally administered, unicast.
	key[0] = (key[0] | 0x02) &^ 0x01

	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		key[0], key[1], key[2], key[3], key[4], key[5])
}
