// Package spin is the reward allocation engine: quota, wallet ledger, reward
// draw, ticket pool, winner draw and claim, composed into transactional spins.
package spin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"     // Spin and history IDs
	"github.com/sirupsen/logrus" // Logrus for structured logging

	"lucky_spin/internal/apperr"
	"lucky_spin/internal/domain"
	"lucky_spin/internal/events"
	"lucky_spin/internal/store"
)

// Defaults for Options left at their zero value
const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 50 * time.Millisecond
)

// Options tunes a Service
type Options struct {
	TicketThreshold int                // Distinct ticket holders before the pool grows on every issue
	RetryAttempts   int                // Tries per transaction on transient storage failures
	RetryBackoff    time.Duration      // First pause between tries, doubled each time
	Random          Random             // Source of every draw
	Now             func() time.Time   // Clock
	Publisher       events.Publisher   // Event sink
	Logger          logrus.FieldLogger // Structured logger
}

// Service is the spin engine entry point
type Service struct {
	store    store.Store
	quota    QuotaTracker
	ledger   WalletLedger
	claims   ClaimWorkflow
	pool     *TicketPool
	selector *RewardSelector
	winners  *WinnerSelector
	events   events.Publisher
	log      logrus.FieldLogger
	now      func() time.Time
	attempts int
	backoff  time.Duration
}

// NewService wires the engine over a store
func NewService(st store.Store, opts Options) *Service {
	if opts.Random == nil {
		opts.Random = globalRandom{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NewLogPublisher(opts.Logger)
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = DefaultRetryAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	return &Service{
		store:    st,
		pool:     NewTicketPool(opts.Random, opts.TicketThreshold),
		selector: NewRewardSelector(opts.Random),
		winners:  NewWinnerSelector(opts.Random),
		events:   opts.Publisher,
		log:      opts.Logger.WithField("component", "spin"),
		now:      opts.Now,
		attempts: opts.RetryAttempts,
		backoff:  opts.RetryBackoff,
	}
}

// SpinResult is returned by a successful spin
type SpinResult struct {
	SpinID          string        `json:"spin_id"`
	ConfigurationID uint          `json:"configuration_id"`
	UserID          string        `json:"user_id"`
	Cost            int64         `json:"cost"`
	Reward          domain.Reward `json:"reward"`
	RemainingSpins  int           `json:"remaining_spins"`
}

// QuotaInfo is a user's daily allowance on one configuration
type QuotaInfo struct {
	ConfigurationID uint   `json:"configuration_id"`
	UserID          string `json:"user_id"`
	Remaining       int    `json:"daily_spin_left"`
	DailySpins      int    `json:"daily_spins"`
}

// Spin runs one spin for userID on configID.
//
// The cost and the quota unit are reserved in one transaction, the reward is
// settled in a second one. A business failure while settling hands both back
// immediately; any other failure leaves the reservation pending for Reconcile.
func (s *Service) Spin(ctx context.Context, configID uint, userID string) (*SpinResult, error) {
	if userID == "" {
		return nil, apperr.Newf(apperr.CodeInvalidRequest, "user id is required")
	}
	reservation, remaining, err := s.reserve(ctx, configID, userID)
	if err != nil {
		return nil, s.fail(err)
	}

	reward, err := s.settle(ctx, reservation.ID)
	if err != nil {
		entry := s.log.WithFields(logrus.Fields{
			"spin_id":          reservation.ID, // Reservation ID
			"configuration_id": configID,       // Spin configuration
			"user_id":          userID,         // Spinning user
			"error":            err.Error(),    // Error message
		})
		if !apperr.IsBusiness(err) {
			entry.Error("Spin not settled, left pending for reconciliation")
			return nil, s.fail(err)
		}
		if _, cerr := s.compensate(ctx, reservation.ID, err.Error()); cerr != nil {
			entry.WithField("compensation_error", cerr.Error()).Error("Spin compensation failed, left pending for reconciliation")
			return nil, s.fail(cerr)
		}
		entry.Warn("Spin compensated")
		return nil, err
	}

	result := &SpinResult{
		SpinID:          reservation.ID,
		ConfigurationID: configID,
		UserID:          userID,
		Cost:            reservation.Cost,
		Reward:          reward,
		RemainingSpins:  remaining,
	}
	s.log.WithFields(logrus.Fields{
		"spin_id":          result.SpinID,         // Reservation ID
		"configuration_id": configID,              // Spin configuration
		"user_id":          userID,                // Spinning user
		"cost":             result.Cost,           // Points debited
		"reward_kind":      reward.Kind,           // Reward type
		"reward_amount":    reward.Amount,         // Points credited
		"ticket_code":      reward.TicketCode,     // Issued ticket
		"remaining":        result.RemainingSpins, // Spins left today
	}).Info("Spin completed")
	s.publish(ctx, events.TopicSpinCompleted, result.SpinID, result)
	return result, nil
}

// reserve checks the configuration, consumes a quota unit and debits the cost
func (s *Service) reserve(ctx context.Context, configID uint, userID string) (*domain.SpinReservation, int, error) {
	var reservation *domain.SpinReservation
	var remaining int
	err := s.inTx(ctx, "reserve", func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		cfg, err := tx.LockConfiguration(ctx, configID)
		if err != nil {
			return notFound(err, "spin %d not found", configID)
		}
		if !cfg.IsActive {
			return apperr.ErrInactiveConfiguration
		}
		if err := ValidateConfiguration(cfg); err != nil {
			return err
		}
		giveaway, err := tx.Giveaway(ctx, cfg.GiveawayID)
		if err != nil {
			return notFound(err, "giveaway %d not found", cfg.GiveawayID)
		}
		if !giveaway.OpenAt(now) {
			return apperr.ErrInactiveConfiguration
		}
		wallet, err := tx.Wallet(ctx, userID)
		if err != nil {
			return notFound(err, "wallet for user %s not found", userID)
		}

		// Quota first: an exhausted allowance is reported as such whatever the balance.
		// A failure below rolls the consumed unit back with the transaction.
		left, err := s.quota.CheckAndConsume(ctx, tx, cfg, userID, now)
		if err != nil {
			return err
		}
		if wallet.PointsBalance < giveaway.CostPerSpin {
			return apperr.ErrInsufficientFunds
		}

		r := &domain.SpinReservation{
			ID:              uuid.NewString(),
			ConfigurationID: cfg.ID,
			UserID:          userID,
			Cost:            giveaway.CostPerSpin,
			QuotaDay:        domain.DayKey(now),
			Status:          domain.ReservationPending,
			CreatedAt:       now,
		}
		if err := s.ledger.Debit(ctx, tx, userID, r.Cost, r.ID); err != nil {
			return err
		}
		if err := tx.CreateReservation(ctx, r); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		reservation, remaining = r, left
		return nil
	})
	return reservation, remaining, err
}

// settle draws and records the reward of a pending reservation. Settling a
// committed reservation returns the recorded reward again.
func (s *Service) settle(ctx context.Context, reservationID string) (domain.Reward, error) {
	var reward domain.Reward
	err := s.inTx(ctx, "settle", func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		r, cfg, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		switch r.Status {
		case domain.ReservationCommitted:
			entry, err := tx.UsageByReservation(ctx, r.ID)
			if err != nil {
				return fmt.Errorf("load usage of spin %s: %w", r.ID, err)
			}
			reward = entry.Reward()
			return nil
		case domain.ReservationCompensated:
			return apperr.Newf(apperr.CodeInternal, "spin %s was compensated: %s", r.ID, r.Reason)
		}

		drawn := s.selector.Draw(cfg)
		if drawn.IsTicket() {
			ticket, err := s.pool.Issue(ctx, tx, cfg, r.UserID, now)
			if err != nil {
				return err
			}
			drawn.TicketCode = ticket.Code
			drawn.Amount = 0
		} else if err := s.ledger.Credit(ctx, tx, r.UserID, drawn.Amount, domain.TxSpinReward, r.ID); err != nil {
			return err
		}

		if err := tx.AppendUsage(ctx, &domain.UsageEntry{
			ID:              uuid.NewString(),
			ReservationID:   r.ID,
			ConfigurationID: r.ConfigurationID,
			UserID:          r.UserID,
			UsageDate:       now,
			RewardKind:      drawn.Kind,
			RewardAmount:    drawn.Amount,
			TicketCode:      drawn.TicketCode,
		}); err != nil {
			return fmt.Errorf("append usage: %w", err)
		}
		ok, err := tx.SettleReservation(ctx, r.ID, domain.ReservationCommitted, "", now)
		if err != nil {
			return fmt.Errorf("commit reservation: %w", err)
		}
		if !ok {
			return fmt.Errorf("spin %s is no longer pending: %w", r.ID, store.ErrTransient)
		}
		reward = drawn
		return nil
	})
	return reward, err
}

// compensate refunds the cost and quota unit of a pending reservation.
// It reports false when the reservation had already been settled.
func (s *Service) compensate(ctx context.Context, reservationID, reason string) (bool, error) {
	var compensated *domain.SpinReservation
	err := s.inTx(ctx, "compensate", func(ctx context.Context, tx store.Tx) error {
		compensated = nil
		r, cfg, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.ReservationPending {
			return nil
		}
		if err := s.ledger.Refund(ctx, tx, r.UserID, r.Cost, r.ID); err != nil {
			return err
		}
		if err := s.quota.Refund(ctx, tx, cfg, r.UserID, r.QuotaDay); err != nil {
			return fmt.Errorf("refund quota: %w", err)
		}
		if _, err := tx.SettleReservation(ctx, r.ID, domain.ReservationCompensated, truncate(reason, 255), s.now()); err != nil {
			return fmt.Errorf("mark reservation compensated: %w", err)
		}
		compensated = r
		return nil
	})
	if err != nil || compensated == nil {
		return false, err
	}
	s.publish(ctx, events.TopicSpinCompensated, compensated.ID, map[string]any{
		"spin_id":          compensated.ID,
		"configuration_id": compensated.ConfigurationID,
		"user_id":          compensated.UserID,
		"refunded":         compensated.Cost,
		"reason":           reason,
	})
	return true, nil
}

// lockReservation loads a reservation under its configuration's lock
func lockReservation(ctx context.Context, tx store.Tx, reservationID string) (*domain.SpinReservation, *domain.SpinConfiguration, error) {
	r, err := tx.Reservation(ctx, reservationID)
	if err != nil {
		return nil, nil, notFound(err, "spin %s not found", reservationID)
	}
	cfg, err := tx.LockConfiguration(ctx, r.ConfigurationID)
	if err != nil {
		return nil, nil, notFound(err, "spin configuration %d not found", r.ConfigurationID)
	}
	// Re-read now that concurrent settlers of the same configuration are excluded
	if r, err = tx.Reservation(ctx, reservationID); err != nil {
		return nil, nil, fmt.Errorf("reload spin %s: %w", reservationID, err)
	}
	return r, cfg, nil
}

// GetQuota returns the user's remaining spins for today
func (s *Service) GetQuota(ctx context.Context, configID uint, userID string) (*QuotaInfo, error) {
	var info *QuotaInfo
	err := s.inTx(ctx, "quota", func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.Configuration(ctx, configID)
		if err != nil {
			return notFound(err, "spin %d not found", configID)
		}
		remaining, err := s.quota.Remaining(ctx, tx, cfg, userID, s.now())
		if err != nil {
			return err
		}
		info = &QuotaInfo{ConfigurationID: cfg.ID, UserID: userID, Remaining: remaining, DailySpins: cfg.Allowance()}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return info, nil
}

// PreCreateLotteryTickets adds n fresh codes to a configuration's pool
func (s *Service) PreCreateLotteryTickets(ctx context.Context, configID uint, n int) ([]string, error) {
	if n < 1 || n > MaxPreCreate {
		return nil, apperr.Newf(apperr.CodeInvalidRequest, "number of tickets must be between 1 and %d", MaxPreCreate)
	}
	var codes []string
	err := s.inTx(ctx, "pre-create tickets", func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.LockConfiguration(ctx, configID)
		if err != nil {
			return notFound(err, "spin %d not found", configID)
		}
		codes, err = s.pool.Replenish(ctx, tx, cfg, n)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.log.WithFields(logrus.Fields{
		"configuration_id": configID,   // Spin configuration
		"count":            len(codes), // Codes added
	}).Info("Lottery tickets pre-created")
	return codes, nil
}

// DrawWinner draws today's winning code for one configuration. Drawing again
// on the same UTC day returns the stored result with Drawn false.
func (s *Service) DrawWinner(ctx context.Context, configID uint) (*DrawResult, error) {
	var result DrawResult
	err := s.inTx(ctx, "draw winner", func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.LockConfiguration(ctx, configID)
		if err != nil {
			return notFound(err, "spin %d not found", configID)
		}
		result, err = s.winners.Draw(ctx, tx, cfg, s.now())
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.log.WithFields(logrus.Fields{
		"configuration_id": configID,          // Spin configuration
		"winner_code":      result.WinnerCode, // Drawn code
		"epoch":            result.Epoch,      // Draw day
		"drawn":            result.Drawn,      // False if already drawn today
		"winners":          result.Winners,    // Tickets now WINNER
	}).Info("Winner draw")
	if result.Drawn {
		s.publish(ctx, events.TopicWinnerDrawn, strconv.FormatUint(uint64(configID), 10), result)
	}
	return &result, nil
}

// DrawAll draws winners for every active configuration, continuing past failures
func (s *Service) DrawAll(ctx context.Context) ([]DrawResult, error) {
	var cfgs []domain.SpinConfiguration
	err := s.inTx(ctx, "list active", func(ctx context.Context, tx store.Tx) error {
		var err error
		cfgs, err = tx.Configurations(ctx, store.ConfigurationFilter{ActiveOnly: true})
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}
	results := make([]DrawResult, 0, len(cfgs))
	var errs []error
	for _, cfg := range cfgs {
		result, err := s.DrawWinner(ctx, cfg.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("spin %d: %w", cfg.ID, err))
			continue
		}
		results = append(results, *result)
	}
	return results, errors.Join(errs...)
}

// Claim lets the holder of the winning ticket claim it
func (s *Service) Claim(ctx context.Context, userID string, configID uint) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.inTx(ctx, "claim", func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.LockConfiguration(ctx, configID)
		if err != nil {
			return notFound(err, "spin %d not found", configID)
		}
		ticket, err = s.claims.Claim(ctx, tx, cfg, userID)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.log.WithFields(logrus.Fields{
		"configuration_id": configID,    // Spin configuration
		"user_id":          userID,      // Claiming user
		"ticket_code":      ticket.Code, // Claimed code
	}).Info("Ticket claimed")
	s.publish(ctx, events.TopicTicketClaimed, ticket.Code, ticket)
	return ticket, nil
}

// inTx runs fn in a transaction, re-running it from scratch on transient failures
func (s *Service) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx store.Tx) error) error {
	backoff := s.backoff
	for attempt := 1; ; attempt++ {
		err := s.store.WithinTx(ctx, fn)
		if err == nil || !store.IsTransient(err) || attempt >= s.attempts {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"op":      op,          // Transaction name
			"attempt": attempt,     // Failed attempt number
			"error":   err.Error(), // Error message
		}).Warn("Transient storage failure, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

// fail turns a non-typed error into an internal AppError
func (s *Service) fail(err error) error {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(err, apperr.CodeInternal, "internal error")
}

// publish sends an event, logging instead of failing the committed operation
func (s *Service) publish(ctx context.Context, topic, key string, payload any) {
	if err := s.events.Publish(ctx, topic, key, payload); err != nil {
		s.log.WithFields(logrus.Fields{
			"topic": topic,       // Event topic
			"key":   key,         // Partition key
			"error": err.Error(), // Error message
		}).Warn("Failed to publish event")
	}
}

// notFound maps store.ErrNotFound to a typed NotFound with a message
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Newf(apperr.CodeNotFound, format, args...)
	}
	return err
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
