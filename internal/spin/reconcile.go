package spin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lucky_spin/internal/domain"
	"lucky_spin/internal/store"
)

// ReconcileBatch bounds how many stale reservations one Reconcile pass loads
const ReconcileBatch = 500

// ReconcileReport summarises one Reconcile pass
type ReconcileReport struct {
	Scanned     int `json:"scanned"`
	Compensated int `json:"compensated"`
	Failed      int `json:"failed"`
}

// Reconcile compensates spins left pending for longer than olderThan, which
// are the ones whose settle step never finished.
func (s *Service) Reconcile(ctx context.Context, olderThan time.Duration) (ReconcileReport, error) {
	var report ReconcileReport
	cutoff := s.now().Add(-olderThan)

	var pending []domain.SpinReservation
	err := s.inTx(ctx, "list pending", func(ctx context.Context, tx store.Tx) error {
		var err error
		pending, err = tx.PendingReservations(ctx, cutoff, ReconcileBatch)
		return err
	})
	if err != nil {
		return report, s.fail(err)
	}

	var errs []error
	for _, r := range pending {
		report.Scanned++
		ok, err := s.compensate(ctx, r.ID, "stale pending spin")
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("spin %s: %w", r.ID, err))
			continue
		}
		if ok {
			report.Compensated++
		}
	}

	s.log.WithFields(logrus.Fields{
		"cutoff":      cutoff,             // Pending before this are stale
		"scanned":     report.Scanned,     // Stale reservations found
		"compensated": report.Compensated, // Refunded
		"failed":      report.Failed,      // Left pending
	}).Info("Reconciliation finished")
	return report, errors.Join(errs...)
}
