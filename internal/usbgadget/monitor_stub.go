//go:build !linux

package usbgadget

import (
	"fmt"
	"time"
)

// FunctionFS monitoring needs inotify and a configfs gadget, both
// linux-only. The stub keeps the package compiling elsewhere so the
// service wrapper can still be cross-built.
type FfsMonitor struct {
	controller string
	endpoints  []string
	callback   func(applied bool)
}

func NewFfsMonitor(controller string) (*FfsMonitor, error) {
	return &FfsMonitor{controller: controller}, nil
}

func (m *FfsMonitor) AddInotifyDir(dir string) error {
	return fmt.Errorf("functionfs monitoring requires linux")
}

func (m *FfsMonitor) AddEndpoint(path string) {
	m.endpoints = append(m.endpoints, path)
}

func (m *FfsMonitor) RegisterCallback(cb func(applied bool)) {
	m.callback = cb
}

func (m *FfsMonitor) Running() bool { return false }

func (m *FfsMonitor) Start() error {
	return fmt.Errorf("functionfs monitoring requires linux")
}

func (m *FfsMonitor) Reset() error { return nil }

func (m *FfsMonitor) Close() error { return nil }

func (m *FfsMonitor) WaitForPullUp(timeout time.Duration) bool { return false }
