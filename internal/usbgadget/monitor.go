//go:build linux

package usbgadget

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	epollEvents     = 10
	shutdownMonitor = 100
	inotifyBufSize  = 4096
)

// Tunable so tests do not sit through real hardware settle delays.
var (
	// Settle time between the descriptors appearing and the pullup
	// write, giving the function daemon time to finish endpoint setup.
	pullUpDelay = 500 * time.Millisecond
	// Quiet period required after the endpoints disappear before the
	// gadget is considered reconnectable.
	disconnectWait = 100 * time.Millisecond
)

// FfsMonitor manages the gadget pullup for FunctionFS compositions. A
// FunctionFS function only becomes usable once its userspace daemon
// has written the descriptors, which materializes the endpoint files;
// the monitor watches for that, binds the gadget to the controller,
// and rebinds when the daemon restarts.
type FfsMonitor struct {
	controller string

	inotifyFd int
	eventFd   int
	epollFd   int
	watches   []int
	endpoints []string

	mu        sync.Mutex
	applied   bool
	appliedCh chan struct{}
	running   bool
	done      chan struct{}
	callback  func(applied bool)
}

// NewFfsMonitor creates a monitor that binds the gadget to the given
// UDC controller.
func NewFfsMonitor(controller string) (*FfsMonitor, error) {
	inotifyFd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %v", err)
	}

	eventFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(inotifyFd)
		return nil, fmt.Errorf("eventfd failed: %v", err)
	}

	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(inotifyFd)
		unix.Close(eventFd)
		return nil, fmt.Errorf("epoll_create failed: %v", err)
	}

	m := &FfsMonitor{
		controller: controller,
		inotifyFd:  inotifyFd,
		eventFd:    eventFd,
		epollFd:    epollFd,
		appliedCh:  make(chan struct{}),
	}

	for _, fd := range []int{inotifyFd, eventFd} {
		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epollFd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			m.closeFds()
			return nil, fmt.Errorf("epoll_ctl failed: %v", err)
		}
	}
	return m, nil
}

// AddInotifyDir watches a FunctionFS mount directory for endpoint
// files coming and going.
func (m *FfsMonitor) AddInotifyDir(dir string) error {
	wd, err := unix.InotifyAddWatch(m.inotifyFd, dir, unix.IN_CREATE|unix.IN_DELETE)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %v", dir, err)
	}
	m.watches = append(m.watches, wd)
	return nil
}

// AddEndpoint registers an endpoint file that must exist before the
// gadget is pulled up.
func (m *FfsMonitor) AddEndpoint(path string) {
	m.endpoints = append(m.endpoints, path)
}

// RegisterCallback sets the function invoked whenever the gadget is
// bound or the endpoints drop.
func (m *FfsMonitor) RegisterCallback(cb func(applied bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// Running reports whether the watch goroutine is active.
func (m *FfsMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start launches the watch goroutine. If the endpoints are already
// present the gadget is pulled up right away.
func (m *FfsMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor already running")
	}
	m.running = true
	m.done = make(chan struct{})
	go m.watch(m.done)
	return nil
}

// Reset stops the goroutine, drops all watches and endpoints and
// clears the applied state. The monitor can be reloaded with a new
// composition afterwards.
func (m *FfsMonitor) Reset() error {
	m.mu.Lock()
	running := m.running
	done := m.done
	m.mu.Unlock()

	if running {
		var buf [8]byte
		binary.NativeEndian.PutUint64(buf[:], shutdownMonitor)
		if _, err := unix.Write(m.eventFd, buf[:]); err != nil {
			return fmt.Errorf("failed to signal monitor shutdown: %v", err)
		}
		<-done
	}

	for _, wd := range m.watches {
		unix.InotifyRmWatch(m.inotifyFd, uint32(wd))
	}
	m.watches = nil
	m.endpoints = nil

	m.mu.Lock()
	m.setAppliedLocked(false)
	m.running = false
	m.mu.Unlock()
	return nil
}

// Close releases the monitor's descriptors.
func (m *FfsMonitor) Close() error {
	if err := m.Reset(); err != nil {
		return err
	}
	m.closeFds()
	return nil
}

// WaitForPullUp blocks until the gadget has been pulled up, returning
// false on timeout. Returns immediately if it already happened.
func (m *FfsMonitor) WaitForPullUp(timeout time.Duration) bool {
	m.mu.Lock()
	if m.applied {
		m.mu.Unlock()
		return true
	}
	ch := m.appliedCh
	m.mu.Unlock()

	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (m *FfsMonitor) closeFds() {
	unix.Close(m.epollFd)
	unix.Close(m.eventFd)
	unix.Close(m.inotifyFd)
}

// setAppliedLocked flips the applied state and wakes waiters. Callers
// hold m.mu.
func (m *FfsMonitor) setAppliedLocked(applied bool) {
	if m.applied == applied {
		return
	}
	m.applied = applied
	if applied {
		close(m.appliedCh)
	} else {
		m.appliedCh = make(chan struct{})
	}
	if m.callback != nil {
		go m.callback(applied)
	}
}

func (m *FfsMonitor) endpointsPresent() bool {
	if len(m.endpoints) == 0 {
		return false
	}
	for _, ep := range m.endpoints {
		if _, err := os.Stat(ep); err != nil {
			return false
		}
	}
	return true
}

func (m *FfsMonitor) pullUp() bool {
	time.Sleep(pullUpDelay)
	if err := writeGadgetFile(PullupPath, m.controller); err != nil {
		log.Printf("Gadget pullup failed: %v", err)
		return false
	}
	log.Printf("Gadget pulled up on %s", m.controller)
	return true
}

func (m *FfsMonitor) watch(done chan struct{}) {
	defer close(done)

	var disconnected time.Time
	events := make([]unix.EpollEvent, epollEvents)
	buf := make([]byte, inotifyBufSize)

	// The descriptors may have been written before the watch started.
	if m.endpointsPresent() && m.pullUp() {
		m.mu.Lock()
		m.setAppliedLocked(true)
		m.mu.Unlock()
	}

	for {
		n, err := unix.EpollWait(m.epollFd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			log.Printf("Monitor epoll_wait failed: %v", err)
			return
		}

		for i := 0; i < n; i++ {
			switch int(events[i].Fd) {
			case m.eventFd:
				var val [8]byte
				if _, err := unix.Read(m.eventFd, val[:]); err == nil {
					if binary.NativeEndian.Uint64(val[:]) == shutdownMonitor {
						return
					}
				}

			case m.inotifyFd:
				if _, err := unix.Read(m.inotifyFd, buf); err != nil {
					continue
				}

				present := m.endpointsPresent()
				m.mu.Lock()
				applied := m.applied
				m.mu.Unlock()

				if present && !applied {
					// Hold off when the previous session tore down a
					// moment ago; the function daemon may still be
					// settling.
					if wait := disconnectWait - time.Since(disconnected); wait > 0 {
						time.Sleep(wait)
					}
					if m.pullUp() {
						m.mu.Lock()
						m.setAppliedLocked(true)
						m.mu.Unlock()
					}
				} else if !present && applied {
					log.Println("Gadget endpoints disappeared")
					disconnected = time.Now()
					m.mu.Lock()
					m.setAppliedLocked(false)
					m.mu.Unlock()
				}
			}
		}
	}
}
