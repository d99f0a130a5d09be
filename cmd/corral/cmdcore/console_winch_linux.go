//go:build linux

package cmdcore

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyWinch registers propagate to run on every SIGWINCH, returning a
// cleanup that stops listening. Grounded on the teacher's
// console/sigwinch_linux.go.
func notifyWinch(propagate func()) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	go func() {
		for range sigCh {
			propagate()
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}
