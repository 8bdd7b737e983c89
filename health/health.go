// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health reports engine liveness for the /health endpoint.
package health

import (
	"sync"
	"time"
)

// Probe checks that the engine's backing store still answers reads.
type Probe func() error

// Status is the health snapshot served to monitors.
type Status struct {
	Healthy        bool   `json:"healthy"`
	StoreReachable bool   `json:"storeReachable"`
	UptimeSeconds  uint64 `json:"uptimeSeconds"`
}

// Health tracks process uptime and the result of the last store probe.
type Health struct {
	lock    sync.RWMutex
	started time.Time
	probe   Probe
	lastErr error
}

// New builds a Health around the given store probe. A nil probe reports
// the store as always reachable.
func New(probe Probe) *Health {
	return &Health{started: time.Now(), probe: probe}
}

// Status runs the probe and returns the current snapshot.
func (h *Health) Status() *Status {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.lastErr = nil
	if h.probe != nil {
		h.lastErr = h.probe()
	}
	storeOK := h.lastErr == nil
	return &Status{
		Healthy:        storeOK,
		StoreReachable: storeOK,
		UptimeSeconds:  uint64(time.Since(h.started) / time.Second),
	}
}

// LastError returns the error of the most recent probe, if any.
func (h *Health) LastError() error {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.lastErr
}
