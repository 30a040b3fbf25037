//go:build unix

package cli

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyManual delivers SIGUSR1, which requests an immediate sync.
func notifyManual(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGUSR1)
}
