/*
scheduler.go - Periodic G-table refresh

PURPOSE:
  Several instances may share one database. An edit through one instance
  reaches the others when their refresher reloads the table. The refresher
  also warns when the newest G row looks out of date: G is regulated every
  May, so a table whose newest row is more than StaleAfter old is missing
  a regulation.

DESIGN:
  - Runs in the caller's goroutine until the context is cancelled
  - Reloads immediately, then on every tick
  - A failed reload keeps the table in force and is logged

CONFIGURATION:
  - Interval:   How often to reload (default: 15 minutes)
  - StaleAfter: Age of the newest row that triggers a warning (default: 13 months)

USAGE:
  refresher := NewTableRefresher(handler)
  g.Go(func() error { return refresher.Run(ctx) })

SEE ALSO:
  - handlers.go: LoadTable
  - cmd/server/main.go: Started with the HTTP server
*/
package api

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/benefit-engine/generic"
)

// TableRefresher reloads the G table from the store on a fixed interval.
type TableRefresher struct {
	Handler    *Handler
	Interval   time.Duration
	StaleAfter int // months

	// Now is overridable for tests.
	Now func() time.Time
}

// NewTableRefresher creates a refresher with default settings.
func NewTableRefresher(h *Handler) *TableRefresher {
	return &TableRefresher{
		Handler:    h,
		Interval:   15 * time.Minute,
		StaleAfter: 13,
		Now:        time.Now,
	}
}

// Run blocks until ctx is done. It always returns nil so that a cancelled
// context does not count as a failure in an errgroup.
func (tr *TableRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(tr.Interval)
	defer ticker.Stop()

	tr.logger().WithField("interval", tr.Interval.String()).Info("G table refresher started")
	tr.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			tr.RunOnce(ctx)
		case <-ctx.Done():
			tr.logger().Info("G table refresher stopped")
			return nil
		}
	}
}

// RunOnce reloads the table and reports whether its newest row is stale.
func (tr *TableRefresher) RunOnce(ctx context.Context) (stale bool) {
	if err := tr.Handler.LoadTable(ctx); err != nil {
		tr.logger().WithError(err).Error("G table reload failed, keeping table in force")
	}

	table, source := tr.Handler.Table()
	entries := table.Entries()
	if len(entries) == 0 {
		return false
	}
	newest := entries[len(entries)-1].EffectiveFrom

	now := tr.Now()
	today := generic.NewDate(now.Year(), now.Month(), now.Day())
	if newest.AddMonths(tr.StaleAfter).Before(today) {
		tr.logger().WithFields(logrus.Fields{
			"newest_effective_from": newest.String(),
			"source":                source,
		}).Warn("G table has no row for the latest regulation")
		return true
	}
	return false
}

func (tr *TableRefresher) logger() *logrus.Entry {
	return tr.Handler.Logger.WithField("module", "g_table_refresher")
}
