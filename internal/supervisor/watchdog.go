package supervisor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
)

// maxAlertsPerOutage caps alerts per down transition before the watchdog
// goes silent until recovery (spec.md §4.6 "up to 3 alerts").
const maxAlertsPerOutage = 3

// errorInstructions maps a known error substring to a short operator
// instruction, grounded on the teacher's watchdog.py ERROR_INSTRUCTIONS
// table. Checked in order; first match wins.
var errorInstructions = []struct {
	substr string
	advice string
}{
	{"401", "check the API key is still valid"},
	{"403", "check the API key has the right scopes"},
	{"429", "rate limited — the backend should recover on its own"},
	{"connection refused", "the database or upstream service looks down"},
	{"timeout", "the network or an upstream dependency is slow"},
	{"context deadline exceeded", "an LLM call timed out — check provider status"},
	{"unauthorized", "check the credentials for this module"},
}

func adviceFor(errMsg string) string {
	lower := strings.ToLower(errMsg)
	for _, e := range errorInstructions {
		if strings.Contains(lower, e.substr) {
			return e.advice
		}
	}
	return "no known fix — check the logs"
}

// watchdogState holds the per-module alert counters and down-set that
// spec.md §9 requires be struct fields rather than module-level globals.
type watchdogState struct {
	mu        sync.Mutex
	alertsOf  map[string]int
	knownDown map[string]bool
}

func newWatchdogState() watchdogState {
	return watchdogState{alertsOf: make(map[string]int), knownDown: make(map[string]bool)}
}

// runWatchdog scans HealthCheck every 5 minutes; a module is down if
// now-last_heartbeat >= 3x the heartbeat interval (spec.md §4.6).
func (d *Daemon) runWatchdog(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.scanHealth(ctx)
		}
	}
}

func (d *Daemon) scanHealth(ctx context.Context) {
	checks, err := d.stores.Health.All(ctx)
	if err != nil {
		return
	}

	threshold := 3 * d.heartbeatInterval()
	now := time.Now()

	d.watchdog.mu.Lock()
	defer d.watchdog.mu.Unlock()

	for _, c := range checks {
		down := now.Sub(c.Timestamp) >= threshold || c.Status == "error"
		wasDown := d.watchdog.knownDown[c.Module]

		switch {
		case down && !wasDown:
			d.watchdog.knownDown[c.Module] = true
			d.watchdog.alertsOf[c.Module] = 1
			d.bus.Notify.Publish(bus.OutboundNotification{
				Text: "🔴 " + c.Module + " is down: " + c.Error + "\n" + adviceFor(c.Error),
			})
		case down && wasDown:
			if d.watchdog.alertsOf[c.Module] < maxAlertsPerOutage {
				d.watchdog.alertsOf[c.Module]++
				d.bus.Notify.Publish(bus.OutboundNotification{
					Text: "🔴 " + c.Module + " still down: " + c.Error,
				})
			}
		case !down && wasDown:
			d.watchdog.knownDown[c.Module] = false
			d.watchdog.alertsOf[c.Module] = 0
			d.bus.Notify.Publish(bus.OutboundNotification{Text: "🟢 " + c.Module + " recovered."})
		}
	}
}
