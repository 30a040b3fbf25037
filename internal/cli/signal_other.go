//go:build !unix

package cli

import "os"

func notifyManual(chan<- os.Signal) {}
