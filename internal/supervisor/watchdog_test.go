package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

func TestAdviceFor(t *testing.T) {
	tests := []struct {
		errMsg string
		want   string
	}{
		{"401 Unauthorized", "check the API key is still valid"},
		{"rate limited: 429 too many requests", "rate limited — the backend should recover on its own"},
		{"dial tcp: connection refused", "the database or upstream service looks down"},
		{"context deadline exceeded", "an LLM call timed out — check provider status"},
		{"something entirely unrecognized", "no known fix — check the logs"},
	}
	for _, tt := range tests {
		t.Run(tt.errMsg, func(t *testing.T) {
			if got := adviceFor(tt.errMsg); got != tt.want {
				t.Errorf("adviceFor(%q) = %q, want %q", tt.errMsg, got, tt.want)
			}
		})
	}
}

type fakeHealthStore struct {
	checks []store.HealthCheck
}

func (f *fakeHealthStore) Heartbeat(ctx context.Context, module, status, errMsg string) error {
	return nil
}
func (f *fakeHealthStore) All(ctx context.Context) ([]store.HealthCheck, error) {
	return f.checks, nil
}

func newTestDaemon(checks []store.HealthCheck) (*Daemon, *bus.Bus) {
	b := bus.New()
	d := &Daemon{
		cfg:      config.Defaults(),
		stores:   &store.Stores{Health: &fakeHealthStore{checks: checks}},
		bus:      b,
		watchdog: newWatchdogState(),
	}
	return d, b
}

func TestScanHealth_NewlyDownModuleAlertsOnce(t *testing.T) {
	now := time.Now()
	d, b := newTestDaemon([]store.HealthCheck{
		{Module: "ingest", Status: "ok", Timestamp: now.Add(-20 * time.Minute)},
	})
	sub := b.Notify.Subscribe("test", 4)

	d.scanHealth(context.Background())

	select {
	case note := <-sub:
		if note.Text == "" {
			t.Fatal("expected a down alert")
		}
	default:
		t.Fatal("expected one alert to be published")
	}
	if d.watchdog.alertsOf["ingest"] != 1 {
		t.Errorf("alertsOf[ingest] = %d, want 1", d.watchdog.alertsOf["ingest"])
	}
	if !d.watchdog.knownDown["ingest"] {
		t.Error("ingest should be marked known-down")
	}
}

func TestScanHealth_StopsAlertingAfterThreeAlerts(t *testing.T) {
	now := time.Now()
	d, b := newTestDaemon([]store.HealthCheck{
		{Module: "ingest", Status: "error", Error: "boom", Timestamp: now},
	})
	sub := b.Notify.Subscribe("test", 16)

	for i := 0; i < 5; i++ {
		d.scanHealth(context.Background())
	}

	count := 0
drain:
	for {
		select {
		case <-sub:
			count++
		default:
			break drain
		}
	}

	if count != maxAlertsPerOutage {
		t.Errorf("got %d alerts, want %d (capped)", count, maxAlertsPerOutage)
	}
}

func TestScanHealth_RecoveryResetsStateAndNotifies(t *testing.T) {
	d, b := newTestDaemon(nil)
	d.watchdog.knownDown["ingest"] = true
	d.watchdog.alertsOf["ingest"] = 2
	d.stores.Health = &fakeHealthStore{checks: []store.HealthCheck{
		{Module: "ingest", Status: "ok", Timestamp: time.Now()},
	}}
	sub := b.Notify.Subscribe("test", 4)

	d.scanHealth(context.Background())

	select {
	case note := <-sub:
		if note.Text != "🟢 ingest recovered." {
			t.Errorf("got %q", note.Text)
		}
	default:
		t.Fatal("expected a recovery notice")
	}
	if d.watchdog.knownDown["ingest"] {
		t.Error("ingest should no longer be known-down")
	}
	if d.watchdog.alertsOf["ingest"] != 0 {
		t.Errorf("alertsOf[ingest] = %d, want reset to 0", d.watchdog.alertsOf["ingest"])
	}
}

func TestHeartbeatInterval_DefaultsWhenUnset(t *testing.T) {
	d := &Daemon{cfg: config.Defaults()}
	if got := d.heartbeatInterval(); got != 300*time.Second {
		t.Errorf("heartbeatInterval() = %v, want 300s", got)
	}
}
