package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Usb    UsbConfig    `json:"usb"`
	Power  PowerConfig  `json:"power"`
	Daemon DaemonConfig `json:"daemon"`
}

type UsbConfig struct {
	VendorID      string       `json:"vendor_id"`
	ProductID     string       `json:"product_id"`
	Manufacturer  string       `json:"manufacturer"`
	Product       string       `json:"product"`
	Functions     []string     `json:"functions"`
	Controller    string       `json:"controller"`
	RndisFunction string       `json:"rndis_function,omitempty"`
	Tether        TetherConfig `json:"tether"`
}

type TetherConfig struct {
	Enabled   bool   `json:"enabled"`
	Interface string `json:"interface"`
	Uplink    string `json:"uplink"`
	Address   string `json:"address"`
}

type PowerConfig struct {
	Wlan         WlanConfig              `json:"wlan"`
	Providers    []GenericProviderConfig `json:"providers"`
	SnapshotPath string                  `json:"snapshot_path,omitempty"`
}

type WlanConfig struct {
	Enabled    bool   `json:"enabled"`
	EntityName string `json:"entity_name"`
	Path       string `json:"path"`
}

// GenericProviderConfig describes one residency file and the entities
// parsed out of it.
type GenericProviderConfig struct {
	Path     string         `json:"path"`
	Entities []EntityConfig `json:"entities"`
}

type EntityConfig struct {
	Name   string        `json:"name"`
	Header string        `json:"header"`
	States []StateConfig `json:"states"`
}

type StateConfig struct {
	Name             string `json:"name"`
	Header           string `json:"header"`
	EntryCountPrefix string `json:"entry_count_prefix,omitempty"`
	TotalTimePrefix  string `json:"total_time_prefix,omitempty"`
	LastEntryPrefix  string `json:"last_entry_prefix,omitempty"`
}

type DaemonConfig struct {
	PollIntervalSecs int `json:"poll_interval_secs"`
	ResidencyLogMins int `json:"residency_log_mins"`
	SessionHistory   int `json:"session_history"`
}

var (
	ConfigDir  = "/etc/boardhal"
	ConfigFile = filepath.Join(ConfigDir, "config.json")
	config     *Config
)

func defaultConfig() *Config {
	return &Config{
		Usb: UsbConfig{
			VendorID:     "0x18d1",
			ProductID:    "0x4ee7",
			Manufacturer: "ovrld",
			Product:      "boardhal gadget",
			Functions:    []string{"adb"},
			Tether: TetherConfig{
				Interface: "usb0",
				Uplink:    "eth0",
				Address:   "192.168.42.1/24",
			},
		},
		Power: PowerConfig{
			Wlan: WlanConfig{
				Enabled:    true,
				EntityName: "WLAN",
				Path:       "/sys/kernel/debug/wlan0/power_stats",
			},
		},
		Daemon: DaemonConfig{
			PollIntervalSecs: 5,
			ResidencyLogMins: 60,
			SessionHistory:   127,
		},
	}
}

func InitConfig() error {
	// Defaults first, so read-only commands work even when the config
	// dir is not writable.
	config = defaultConfig()

	if err := os.MkdirAll(ConfigDir, 0755); err != nil {
		return err
	}

	if _, err := os.Stat(ConfigFile); err == nil {
		data, err := os.ReadFile(ConfigFile)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, config); err != nil {
			fmt.Println("Warning: Config file corrupted, creating new one")
			config = defaultConfig()
			return SaveConfig()
		}
		return nil
	}

	fmt.Println("Creating boardhal configuration file...")
	return SaveConfig()
}

func GetConfig() *Config {
	return config
}

func SaveConfig() error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	// Root only; the config decides what the board exposes over USB.
	if err := os.WriteFile(ConfigFile, data, 0600); err != nil {
		return err
	}
	return nil
}
