package transport

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

func signalIgnore(sig syscall.Signal) {
	signal.Ignore(sig)
}

func signalReset(sig syscall.Signal) {
	signal.Reset(sig)
}

// shutdownHook sends SIGHUP to every live process transport when the
// controlling program receives SIGINT/SIGTERM, so interactive children
// don't outlive a killed controller.
// It is installed once per process and torn down per-transport on
// Close, never per-transport installed, to avoid stacking duplicate
// signal.Notify registrations.
var (
	shutdownMu    sync.Mutex
	shutdownSet   = map[*ProcessTransport]struct{}{}
	shutdownArmed bool
)

func registerShutdownHook(p *ProcessTransport) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	shutdownSet[p] = struct{}{}
	if shutdownArmed {
		return
	}
	shutdownArmed = true
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go runShutdownHook(sigc)
}

func unregisterShutdownHook(p *ProcessTransport) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	delete(shutdownSet, p)
}

func runShutdownHook(sigc chan os.Signal) {
	<-sigc
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	for p := range shutdownSet {
		if p.pid > 0 {
			unix.Kill(p.pid, unix.SIGHUP)
		}
	}
}
