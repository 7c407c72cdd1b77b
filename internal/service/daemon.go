package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ovrld/boardhal/internal/config"
	"github.com/ovrld/boardhal/internal/identity"
	"github.com/ovrld/boardhal/internal/platform"
	"github.com/ovrld/boardhal/internal/powerstats"
	"github.com/ovrld/boardhal/internal/udc"
	"github.com/ovrld/boardhal/internal/usbgadget"
)

// DumpFile receives the daemon state when SIGUSR2 arrives.
var DumpFile = "/var/run/boardhal.dump"

type Daemon struct {
	power   *powerstats.Service
	tracker *udc.SessionTracker
	tether  platform.TetherManager

	mu         sync.Mutex
	monitor    *usbgadget.FfsMonitor
	controller string
	tethered   bool

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewDaemon() *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()
	return &Daemon{
		power:   BuildPowerService(cfg),
		tracker: udc.NewSessionTracker(cfg.Daemon.SessionHistory),
		tether:  platform.NewTetherManager(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// BuildPowerService assembles the residency service from the
// configuration. Entity ids are assigned in registration order: the
// WLAN entity first when enabled, then the configured generic
// providers.
func BuildPowerService(cfg *config.Config) *powerstats.Service {
	svc := powerstats.NewService()

	if cfg.Power.Wlan.Enabled {
		id := svc.AddEntity(cfg.Power.Wlan.EntityName, powerstats.EntityTypeSubsystem)
		if err := svc.AddProvider(powerstats.NewWlanProvider(id, cfg.Power.Wlan.Path)); err != nil {
			log.Printf("Failed to register wlan provider: %v", err)
		}
	}

	for _, pc := range cfg.Power.Providers {
		provider := powerstats.NewGenericProvider(pc.Path)
		for _, ec := range pc.Entities {
			id := svc.AddEntity(ec.Name, powerstats.EntityTypeSubsystem)
			entity := powerstats.EntityConfig{Name: ec.Name, Header: ec.Header}
			for _, sc := range ec.States {
				entity.States = append(entity.States, powerstats.StateConfig{
					Name:             sc.Name,
					Header:           sc.Header,
					EntryCountPrefix: sc.EntryCountPrefix,
					TotalTimePrefix:  sc.TotalTimePrefix,
					LastEntryPrefix:  sc.LastEntryPrefix,
				})
			}
			provider.AddEntity(id, entity)
		}
		if err := svc.AddProvider(provider); err != nil {
			log.Printf("Failed to register provider for %s: %v", pc.Path, err)
		}
	}

	return svc
}

func (d *Daemon) Start() error {
	if d.running {
		return fmt.Errorf("daemon already running")
	}

	d.running = true
	log.Println("Boardhal daemon starting...")

	// A board without configfs still serves residency data, so a
	// gadget failure is not fatal here.
	if err := d.applyGadget(); err != nil {
		log.Printf("Failed to apply gadget configuration: %v", err)
	}

	go d.monitorController()
	go d.logResidency()
	go d.handleSignals()

	if err := CreatePidFile(); err != nil {
		log.Printf("Warning: Could not create PID file: %v", err)
	}

	log.Println("Boardhal daemon started successfully")
	return nil
}

func (d *Daemon) Stop() error {
	if !d.running {
		return fmt.Errorf("daemon not running")
	}

	log.Println("Stopping boardhal daemon...")
	d.cancel()
	d.running = false

	d.swapMonitor(nil)
	d.disableTether()

	// The gadget stays composed; tearing it down would drop the adb
	// session used to manage the board.
	RemovePidFile()
	return nil
}

// applyGadget composes the USB gadget from the configuration: reset,
// ids and strings, then the selected functions. Compositions with
// FunctionFS functions hold the bus until their daemons come up,
// everything else binds immediately.
func (d *Daemon) applyGadget() error {
	cfg := config.GetConfig()

	controller, err := d.pickController(cfg)
	if err != nil {
		return err
	}

	functions, err := usbgadget.ParseFunctions(cfg.Usb.Functions)
	if err != nil {
		return err
	}
	if cfg.Usb.RndisFunction != "" {
		usbgadget.RndisFunctionName = cfg.Usb.RndisFunction
	}

	if status := usbgadget.ResetGadget(); status != usbgadget.StatusSuccess {
		return fmt.Errorf("failed to reset gadget: %v", status)
	}
	if status := usbgadget.SetVidPid(cfg.Usb.VendorID, cfg.Usb.ProductID); status != usbgadget.StatusSuccess {
		return fmt.Errorf("failed to set usb ids: %v", status)
	}

	serial, err := identity.SerialNumber()
	if err != nil {
		log.Printf("Failed to derive serial number: %v", err)
	}
	if err := usbgadget.SetDeviceStrings(serial, cfg.Usb.Manufacturer, cfg.Usb.Product); err != nil {
		log.Printf("Failed to set device strings: %v", err)
	}

	monitor, err := usbgadget.NewFfsMonitor(controller)
	if err != nil {
		return fmt.Errorf("failed to create function monitor: %v", err)
	}

	functionCount := 0
	ffsEnabled := false

	if functions&usbgadget.FunctionAdb != 0 {
		ffsEnabled = true
		if status := usbgadget.AddAdb(monitor, &functionCount); status != usbgadget.StatusSuccess {
			monitor.Close()
			return fmt.Errorf("failed to add adb: %v", status)
		}
	}
	if status := usbgadget.AddGenericAndroidFunctions(monitor, functions&^usbgadget.FunctionAdb, &ffsEnabled, &functionCount); status != usbgadget.StatusSuccess {
		monitor.Close()
		return fmt.Errorf("failed to add functions: %v", status)
	}

	d.setNetworkAddresses(functions)

	d.mu.Lock()
	d.controller = controller
	d.mu.Unlock()

	if ffsEnabled {
		monitor.RegisterCallback(func(applied bool) {
			if applied {
				d.applyTether(config.GetConfig(), functions)
			}
		})
		d.swapMonitor(monitor)
		if err := monitor.Start(); err != nil {
			return err
		}
		log.Printf("Gadget composed (%s), waiting for function daemons", functions)
		return nil
	}

	monitor.Close()
	d.swapMonitor(nil)
	if functionCount > 0 {
		if err := usbgadget.Pullup(controller); err != nil {
			return err
		}
	}
	log.Printf("Gadget composed (%s) on %s", functions, controller)

	d.applyTether(cfg, functions)
	return nil
}

// pickController takes the configured UDC name, or the first one the
// kernel registered.
func (d *Daemon) pickController(cfg *config.Config) (string, error) {
	if cfg.Usb.Controller != "" {
		return cfg.Usb.Controller, nil
	}

	controllers, err := udc.Discover()
	if err != nil {
		return "", err
	}
	if len(controllers) == 0 {
		return "", fmt.Errorf("no usb device controller found")
	}
	return controllers[0], nil
}

// setNetworkAddresses writes stable MAC addresses into the network
// function attributes. The attribute files only exist once the kernel
// has created the function instance, so misses are fine.
func (d *Daemon) setNetworkAddresses(functions usbgadget.Function) {
	netFns := []struct {
		bit      usbgadget.Function
		instance string
		kind     string
	}{
		{usbgadget.FunctionRndis, usbgadget.RndisFunctionName, "rndis"},
		{usbgadget.FunctionNcm, "ncm.gs9", "ncm"},
	}

	for _, fn := range netFns {
		if functions&fn.bit == 0 {
			continue
		}

		hostAddr, devAddr, err := identity.MACPair(fn.kind)
		if err != nil {
			log.Printf("Failed to derive %s addresses: %v", fn.kind, err)
			continue
		}

		dir := filepath.Join(usbgadget.FunctionsPath, fn.instance)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		for node, value := range map[string]string{"host_addr": hostAddr, "dev_addr": devAddr} {
			if err := os.WriteFile(filepath.Join(dir, node), []byte(value), 0644); err != nil {
				log.Printf("Failed to set %s %s: %v", fn.kind, node, err)
			}
		}
	}
}

// applyTether brings up NAT for the usb network interface once a
// network function is part of the composition.
func (d *Daemon) applyTether(cfg *config.Config, functions usbgadget.Function) {
	if !cfg.Usb.Tether.Enabled {
		return
	}
	if functions&(usbgadget.FunctionRndis|usbgadget.FunctionNcm) == 0 {
		return
	}
	if !platform.HasLink(cfg.Usb.Tether.Interface) {
		log.Printf("Tether interface %s not present yet", cfg.Usb.Tether.Interface)
		return
	}

	if err := d.tether.Enable(cfg.Usb.Tether.Interface, cfg.Usb.Tether.Uplink, cfg.Usb.Tether.Address); err != nil {
		log.Printf("Failed to enable tethering: %v", err)
		return
	}

	d.mu.Lock()
	d.tethered = true
	d.mu.Unlock()
}

func (d *Daemon) disableTether() {
	d.mu.Lock()
	tethered := d.tethered
	d.tethered = false
	d.mu.Unlock()
	if !tethered {
		return
	}

	cfg := config.GetConfig()
	if err := d.tether.Disable(cfg.Usb.Tether.Interface, cfg.Usb.Tether.Uplink); err != nil {
		log.Printf("Failed to disable tethering: %v", err)
	}
}

// swapMonitor installs a new function monitor and closes the previous
// one.
func (d *Daemon) swapMonitor(monitor *usbgadget.FfsMonitor) {
	d.mu.Lock()
	old := d.monitor
	d.monitor = monitor
	d.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

func (d *Daemon) monitorController() {
	cfg := config.GetConfig()
	interval := time.Duration(cfg.Daemon.PollIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			controller := d.controller
			d.mu.Unlock()
			if controller == "" {
				continue
			}

			state, err := udc.ReadState(controller)
			if err != nil {
				continue
			}
			if d.tracker.Observe(state) {
				log.Printf("USB state: %s", state)
			}
		}
	}
}

func (d *Daemon) logResidency() {
	cfg := config.GetConfig()
	if cfg.Daemon.ResidencyLogMins <= 0 {
		return
	}
	interval := time.Duration(cfg.Daemon.ResidencyLogMins) * time.Minute

	last, err := powerstats.Snapshot(d.power)
	if err != nil {
		log.Printf("Residency snapshot failed: %v", err)
	}
	lastAt := time.Now()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			current, err := powerstats.Snapshot(d.power)
			if err != nil {
				log.Printf("Residency snapshot failed: %v", err)
				continue
			}
			if last != nil {
				d.writeIntervalSnapshot(cfg.Power.SnapshotPath, powerstats.Delta(last, current), time.Since(lastAt))
			}
			last, lastAt = current, time.Now()
		}
	}
}

// writeIntervalSnapshot appends the interval delta to the snapshot
// file, or logs a summary when no path is configured.
func (d *Daemon) writeIntervalSnapshot(path string, delta map[string]uint64, elapsed time.Duration) {
	if path == "" {
		log.Printf("Residency interval: %d states tracked over %s", len(delta), elapsed.Round(time.Second))
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Failed to open snapshot file: %v", err)
		return
	}
	defer f.Close()

	if err := powerstats.WriteInterval(f, delta, elapsed); err != nil {
		log.Printf("Failed to write snapshot: %v", err)
	}
}

// handleSignals reloads and reapplies the gadget configuration on
// SIGUSR1 and dumps the daemon state on SIGUSR2.
func (d *Daemon) handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)

	for {
		select {
		case <-d.ctx.Done():
			return
		case sig := <-ch:
			switch sig {
			case syscall.SIGUSR1:
				log.Println("Reapplying gadget configuration")
				if err := config.InitConfig(); err != nil {
					log.Printf("Failed to reload config: %v", err)
					continue
				}
				d.disableTether()
				if err := d.applyGadget(); err != nil {
					log.Printf("Failed to apply gadget configuration: %v", err)
				}
			case syscall.SIGUSR2:
				if err := d.dumpState(); err != nil {
					log.Printf("Failed to dump state: %v", err)
				}
			}
		}
	}
}

// dumpState writes the controller session log and the residency table
// to DumpFile.
func (d *Daemon) dumpState() error {
	f, err := os.Create(DumpFile)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %v", err)
	}
	defer f.Close()

	d.mu.Lock()
	controller := d.controller
	d.mu.Unlock()

	fmt.Fprintf(f, "controller: %s\n", controller)
	for _, ev := range d.tracker.Events() {
		fmt.Fprintf(f, "  %8dms %s\n", ev.UptimeMs, ev.State)
	}

	if err := powerstats.DumpResidency(f, d.power); err != nil {
		return err
	}

	log.Printf("State dumped to %s", DumpFile)
	return nil
}
