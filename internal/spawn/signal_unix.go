//go:build unix

package spawn

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func signalName(state *os.ProcessState) string {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	sig := ws.Signal()
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}

func signalNumber(name string) int {
	return int(unix.SignalNum(name))
}
