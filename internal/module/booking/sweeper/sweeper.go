// Package sweeper forces overdue reservations into expired and releases their beds.
// It is the only writer of the expired status. Every write is guarded by the version
// read in the same cycle, so a booking paid or cancelled meanwhile is left alone.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"bed-booking-service/config"
	"bed-booking-service/internal/module/booking/availability"
	"bed-booking-service/internal/module/booking/events"
	"bed-booking-service/internal/module/booking/lifecycle"
	"bed-booking-service/internal/module/booking/models/entity"
	"bed-booking-service/internal/module/booking/repositories"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/helpers"
	"bed-booking-service/internal/pkg/log"

	"go.elastic.co/apm"
)

// Lease lets one sweeper instance run a cycle at a time.
type Lease interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

type SweepReport struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	NoShows int `json:"no_shows"`
}

type Sweeper struct {
	repo    repositories.Repositories
	index   *availability.Index
	emitter events.Emitter
	lease   Lease
	cfg     *config.ReservationConfig
	log     log.Logger
}

func New(repo repositories.Repositories, index *availability.Index, emitter events.Emitter, lease Lease, cfg *config.ReservationConfig, log log.Logger) *Sweeper {
	return &Sweeper{
		repo:    repo,
		index:   index,
		emitter: emitter,
		lease:   lease,
		cfg:     cfg,
		log:     log,
	}
}

// Run sweeps every SweepInterval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Sweeper) cycle(ctx context.Context) {
	if s.lease != nil {
		release, ok, err := s.lease.TryAcquire(ctx)
		if err != nil {
			s.log.Warn(ctx, "error acquiring sweeper lease, skipping cycle", err)
			return
		}
		if !ok {
			return
		}
		defer release()
	}

	tx := apm.DefaultTracer.StartTransaction("sweep", "background")
	defer tx.End()
	ctx = apm.ContextWithTransaction(ctx, tx)

	report := s.SweepOnce(ctx, time.Now())
	if report.Expired > 0 || report.NoShows > 0 || report.Failed > 0 {
		s.log.Info(ctx, fmt.Sprintf("sweep done: scanned=%d expired=%d no_shows=%d skipped=%d failed=%d",
			report.Scanned, report.Expired, report.NoShows, report.Skipped, report.Failed))
	}
}

// SweepOnce expires overdue reservations and marks no-shows as of now. Per-booking
// failures are counted and never stop the batch.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) SweepReport {
	var report SweepReport

	due, err := s.repo.FindExpirableBookings(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		s.log.Error(ctx, "error selecting expirable bookings", err)
		report.Failed++
	}
	for _, b := range due {
		report.Scanned++
		s.count(&report, &report.Expired, s.expire(ctx, b, now))
	}

	cutoff := helpers.TruncateDay(now.Add(-s.cfg.NoShowGrace))
	missed, err := s.repo.FindNoShowCandidates(ctx, cutoff, s.cfg.SweepBatchSize)
	if err != nil {
		s.log.Error(ctx, "error selecting no-show candidates", err)
		report.Failed++
	}
	for _, b := range missed {
		report.Scanned++
		s.count(&report, &report.NoShows, s.apply(ctx, b, lifecycle.Transition{To: entity.StatusNoShow, Actor: lifecycle.ActorSweeper, At: now}))
	}

	return report
}

func (s *Sweeper) count(report *SweepReport, success *int, err error) {
	switch {
	case err == nil:
		*success++
	case errors.Is(err, errors.CodeVersionConflict), errors.Is(err, errors.CodeInvalidTransition):
		report.Skipped++
	default:
		report.Failed++
	}
}

// ExpireBooking runs the guarded expiry for one booking. It reports false without
// error when the booking is no longer expirable.
func (s *Sweeper) ExpireBooking(ctx context.Context, bookingID int64, now time.Time) (bool, error) {
	b, err := s.repo.FindBookingByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if b.AutoCleanupProcessed || !lifecycle.Expirable(b, now) {
		return false, nil
	}

	err = s.expire(ctx, b, now)
	if errors.Is(err, errors.CodeVersionConflict) || errors.Is(err, errors.CodeInvalidTransition) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Sweeper) expire(ctx context.Context, b entity.Booking, now time.Time) error {
	return s.apply(ctx, b, lifecycle.Transition{To: entity.StatusExpired, Actor: lifecycle.ActorSweeper, At: now, Reason: "payment window elapsed"})
}

func (s *Sweeper) apply(ctx context.Context, b entity.Booking, t lifecycle.Transition) error {
	next, event, err := lifecycle.Apply(b, t)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateBookingStatus(ctx, next, b.Version); err != nil {
		if !errors.Is(err, errors.CodeVersionConflict) {
			s.log.Error(ctx, fmt.Sprintf("error moving booking %d to %s", b.ID, t.To), err)
		}
		return err
	}

	if next.BedID.Valid {
		s.index.Invalidate(ctx, next.BedID.Int64)
	}
	s.emitter.BookingTransitioned(ctx, event)
	return nil
}
