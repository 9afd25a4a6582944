package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
)

const (
	ingestBackoffStart = 30 * time.Second
	ingestBackoffCap   = 5 * time.Minute

	// ingestRecoveryThreshold is how long a restarted Run must stay up
	// before a prior outage counts as recovered.
	ingestRecoveryThreshold = 2 * time.Minute
)

// spawnResilientIngest wraps Ingest.Run in a restart loop: on crash it logs,
// sends a one-shot "Ingest offline" notification (later crashes in the same
// outage are silent), and retries with exponential backoff capped at 5
// minutes. The first run after an outage that stays up for
// ingestRecoveryThreshold sends "Ingest restored" and resets the backoff —
// spec.md §4.6 "Resilient Ingest".
func (d *Daemon) spawnResilientIngest(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		backoff := ingestBackoffStart
		outage := false

		heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
		go heartbeatEvery(heartbeatCtx, d.heartbeatInterval(), func() {
			_ = d.stores.Health.Heartbeat(ctx, "ingest", "ok", "")
		})
		defer cancelHeartbeat()

		for {
			if ctx.Err() != nil {
				return
			}

			runCtx, cancel := context.WithCancel(ctx)
			var restored *time.Timer
			if outage {
				restored = time.AfterFunc(ingestRecoveryThreshold, func() {
					d.bus.Notify.Publish(bus.OutboundNotification{Text: "✅ Ingest restored."})
				})
			}
			err := d.ingestSvc.Run(runCtx)
			cancel()

			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = errors.New("ingest stream ended unexpectedly")
			}

			// The restored notice went out while this attempt was up, so the
			// prior outage is closed and this failure starts a new one.
			if restored != nil && !restored.Stop() {
				outage = false
				backoff = ingestBackoffStart
			}

			slog.Error("supervisor: ingest listener stopped, restarting", "error", err, "backoff", backoff)
			_ = d.stores.Health.Heartbeat(ctx, "ingest", "error", err.Error())

			if !outage {
				d.bus.Notify.Publish(bus.OutboundNotification{Text: "⚠️ Ingest offline, retrying in the background."})
				outage = true
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > ingestBackoffCap {
				backoff = ingestBackoffCap
			}
		}
	}()
}

func (d *Daemon) heartbeatInterval() time.Duration {
	sec := d.cfg.Resources.HeartbeatIntervalSec
	if sec <= 0 {
		sec = 300
	}
	return time.Duration(sec) * time.Second
}
