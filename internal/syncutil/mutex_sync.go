//go:build !deadlock

// Package syncutil holds the mutex types used by links and the detection
// cache. The default build uses the sync package directly; -tags=deadlock
// switches to github.com/sasha-s/go-deadlock.
package syncutil

import (
	"sync"
	"time"
)

// LockTimeout matches the deadlock build; unused by sync mutexes.
const LockTimeout = 2 * time.Second

// Mutex is a sync.Mutex.
//
//nolint:gocritic // embedding exposes Lock and Unlock
type Mutex struct {
	sync.Mutex
}

// RWMutex is a sync.RWMutex.
//
//nolint:gocritic // embedding exposes the read and write lock methods
type RWMutex struct {
	sync.RWMutex
}
