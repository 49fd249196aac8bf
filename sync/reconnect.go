// ABOUTME: Glue between the connectivity monitor and the reconciler
// ABOUTME: Runs a sync pass in the background each time the remote comes back online
package sync

import (
	"context"
	"log"

	"github.com/harperreed/hailtrack/connectivity"
	"github.com/harperreed/hailtrack/models"
)

// SyncOnReconnect starts a pass whenever monitor reports an online
// transition. onReport may be nil. The returned function unsubscribes.
func (r *Reconciler) SyncOnReconnect(ctx context.Context, monitor *connectivity.Monitor, onReport func(*models.SyncReport, error)) (dispose func()) {
	return monitor.Subscribe(func() {
		if ctx.Err() != nil {
			return
		}
		go func() {
			report, err := r.Sync(ctx, nil)
			if err != nil {
				log.Printf("sync: reconnect pass failed: %v", err)
			} else if report.Total > 0 {
				log.Printf("sync: reconnect pass synced %d of %d (%d failed)", report.Synced, report.Total, report.Failed)
			}
			if onReport != nil {
				onReport(report, err)
			}
		}()
	}, nil)
}
