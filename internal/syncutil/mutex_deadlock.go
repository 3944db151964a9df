//go:build deadlock

// Package syncutil holds the mutex types used by links and the detection
// cache. Building with -tags=deadlock swaps in go-deadlock so a link lock
// held across a stalled driver call is reported instead of hanging the port.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// LockTimeout is how long a lock may be awaited before go-deadlock reports
// it. Link locks cover a single send or non-blocking receive.
const LockTimeout = 2 * time.Second

func init() {
	deadlock.Opts.DeadlockTimeout = LockTimeout
}

// Mutex is a deadlock.Mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock.RWMutex.
type RWMutex struct {
	deadlock.RWMutex
}
