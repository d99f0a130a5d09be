//go:build !linux

package cmdcore

// notifyWinch is a no-op off Linux: SIGWINCH propagation requires it,
// mirroring the teacher's console_darwin.go.
func notifyWinch(func()) func() {
	return func() {}
}
