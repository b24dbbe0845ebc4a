/**
 * @description
 * The payment workflow engine. This is the one place in the service where a
 * multi-step write happens: an immediate payment must verify the
 * beneficiary, verify funds, debit the source account and record the
 * payment as a single atomic unit. The engine performs every read-only
 * rejection (validation, beneficiary lookup, currency policy) before any
 * write, then delegates the check-and-debit plus insert to the repository's
 * transactional commit.
 *
 * State machine, externally observable through the payment status:
 *   REQUESTED -> VALIDATED -> AUTHORIZED -> COMMITTED   => COMPLETED
 *   REQUESTED -> VALIDATED -> REJECTED                  => error, no row
 *   REQUESTED -> SCHEDULED                              => SCHEDULED row, no debit
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/openbanking-service/internal/domain"
	"github.com/transfa/openbanking-service/internal/store"
	"github.com/transfa/openbanking-service/pkg/rabbitmq"
)

// InitiatePayment runs the immediate-payment workflow and returns the
// committed payment record. Rejections never leave a row behind; the
// debit+insert pair either fully commits or fully rolls back.
func (s *Service) InitiatePayment(ctx context.Context, req domain.InitiatePaymentRequest) (*domain.Payment, error) {
	// 1. Validate input shape before touching the store.
	if err := s.validatePaymentRequest(req.Amount, req.Currency); err != nil {
		return nil, err
	}

	if err := s.consumeInitiateRateLimit(ctx, req.SourceAccountID); err != nil {
		return nil, err
	}

	// 2. Verify the beneficiary; its currency decides the blocklist policy.
	beneficiary, err := s.repo.FindBeneficiaryByID(ctx, req.BeneficiaryID)
	if err != nil {
		return nil, err
	}
	if _, blocked := s.blockedCurrencies[beneficiary.Currency]; blocked {
		return nil, &PaymentBlockedError{Currency: beneficiary.Currency}
	}

	// 3-6. Atomic commit: the repository locks the source account, runs the
	// funds check against the locked balance, debits, and inserts the
	// payment. Account lookup failures and insufficient funds surface as
	// store errors with no writes applied.
	now := time.Now().UTC()
	payment := &domain.Payment{
		PaymentID:       uuid.New(),
		Amount:          req.Amount,
		Currency:        beneficiary.Currency,
		BeneficiaryID:   beneficiary.BeneficiaryID,
		SourceAccountID: req.SourceAccountID,
		Status:          domain.PaymentStatusCompleted,
		Type:            domain.PaymentTypeImmediate,
		CreatedAt:       now,
		CompletedAt:     &now,
	}
	if err := s.repo.CommitPayment(ctx, payment); err != nil {
		log.Printf("level=warn component=workflow op=initiate_payment outcome=rejected payment_id=%s source_account_id=%s err=%v",
			payment.PaymentID, req.SourceAccountID, err)
		return nil, err
	}

	log.Printf("level=info component=workflow op=initiate_payment outcome=committed payment_id=%s amount=%s currency=%s",
		payment.PaymentID, payment.Amount, payment.Currency)
	s.publishPaymentEvent(ctx, "payment.completed", payment)
	return payment, nil
}

// SchedulePayment persists a future-dated payment with no debit. The debit
// happens when the due-payment job promotes the row.
func (s *Service) SchedulePayment(ctx context.Context, req domain.SchedulePaymentRequest) (*domain.Payment, error) {
	if err := s.validatePaymentRequest(req.Amount, req.Currency); err != nil {
		return nil, err
	}
	if req.ScheduledDate.IsZero() {
		return nil, &ValidationError{Field: "scheduled_date", Reason: "scheduled date is required"}
	}

	beneficiary, err := s.repo.FindBeneficiaryByID(ctx, req.BeneficiaryID)
	if err != nil {
		return nil, err
	}
	if _, blocked := s.blockedCurrencies[beneficiary.Currency]; blocked {
		return nil, &PaymentBlockedError{Currency: beneficiary.Currency}
	}

	// The source account must exist even though no debit happens yet.
	if _, err := s.repo.FindAccountByID(ctx, req.SourceAccountID); err != nil {
		return nil, err
	}

	scheduled := req.ScheduledDate.UTC()
	payment := &domain.Payment{
		PaymentID:       uuid.New(),
		Amount:          req.Amount,
		Currency:        beneficiary.Currency,
		BeneficiaryID:   beneficiary.BeneficiaryID,
		SourceAccountID: req.SourceAccountID,
		Status:          domain.PaymentStatusScheduled,
		Type:            domain.PaymentTypeScheduled,
		ScheduledDate:   &scheduled,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.CreateScheduledPayment(ctx, payment); err != nil {
		return nil, err
	}

	log.Printf("level=info component=workflow op=schedule_payment payment_id=%s scheduled_date=%s", payment.PaymentID, scheduled.Format(time.RFC3339))
	s.publishPaymentEvent(ctx, "payment.scheduled", payment)
	return payment, nil
}

// CancelPayment transitions SCHEDULED -> CANCELLED only; any other current
// status fails with store.ErrInvalidStateTransition. Funds were never
// debited for SCHEDULED payments, so there is no balance effect.
func (s *Service) CancelPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.repo.CancelScheduledPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=workflow op=cancel_payment payment_id=%s", paymentID)
	s.publishPaymentEvent(ctx, "payment.cancelled", payment)
	return payment, nil
}

// GetPayment returns a single payment record.
func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	return s.repo.FindPaymentByID(ctx, paymentID)
}

// SearchPaymentHistory applies the payment search filter, sort and cap.
func (s *Service) SearchPaymentHistory(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	return s.repo.SearchPayments(ctx, filter)
}

// GetPaymentStatistics aggregates the payment ledger over an optional date
// range: totals plus breakdowns by status, currency and type.
func (s *Service) GetPaymentStatistics(ctx context.Context, start, end *time.Time) (*domain.PaymentStatistics, error) {
	payments, err := s.repo.SearchPayments(ctx, domain.PaymentFilter{StartDate: start, EndDate: end})
	if err != nil {
		return nil, err
	}

	stats := &domain.PaymentStatistics{
		TotalPayments:     len(payments),
		StatusBreakdown:   make(map[domain.PaymentStatus]int),
		CurrencyBreakdown: make(map[string]decimal.Decimal),
		TypeBreakdown:     make(map[domain.PaymentType]int),
		Period:            domain.PaymentStatisticsPeriod{Start: start, End: end},
		LastUpdated:       time.Now().UTC(),
	}
	for _, payment := range payments {
		stats.TotalAmount = stats.TotalAmount.Add(payment.Amount)
		stats.StatusBreakdown[payment.Status]++
		stats.CurrencyBreakdown[payment.Currency] = stats.CurrencyBreakdown[payment.Currency].Add(payment.Amount)
		stats.TypeBreakdown[payment.Type]++
	}
	return stats, nil
}

// ProcessDuePayments promotes SCHEDULED payments whose scheduled_date has
// passed by re-running the atomic check-and-debit. Payments that cannot be
// funded or whose account disappeared are marked FAILED. Returns the number
// of promoted and failed payments.
func (s *Service) ProcessDuePayments(ctx context.Context) (promoted int, failed int, err error) {
	due, err := s.repo.FindDueScheduledPayments(ctx, time.Now().UTC())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list due payments: %w", err)
	}

	for _, payment := range due {
		now := time.Now().UTC()
		commitErr := s.repo.CommitScheduledPayment(ctx, payment.PaymentID, now)
		if commitErr == nil {
			promoted++
			payment.Status = domain.PaymentStatusCompleted
			payment.CompletedAt = &now
			s.publishPaymentEvent(ctx, "payment.completed", &payment)
			continue
		}

		if errors.Is(commitErr, store.ErrInsufficientFunds) || errors.Is(commitErr, store.ErrAccountNotFound) {
			log.Printf("level=warn component=workflow op=process_due_payments outcome=failed payment_id=%s err=%v", payment.PaymentID, commitErr)
			if markErr := s.repo.MarkPaymentFailed(ctx, payment.PaymentID, now); markErr != nil {
				if errors.Is(markErr, store.ErrPaymentNotFound) {
					// Settled concurrently (for example cancelled) between the
					// failed commit and the mark; leave it alone.
					log.Printf("level=info component=workflow op=process_due_payments msg=\"payment no longer scheduled; skipping failure mark\" payment_id=%s", payment.PaymentID)
					continue
				}
				log.Printf("level=error component=workflow op=process_due_payments msg=\"could not mark payment failed\" payment_id=%s err=%v", payment.PaymentID, markErr)
				continue
			}
			failed++
			payment.Status = domain.PaymentStatusFailed
			payment.CompletedAt = &now
			s.publishPaymentEvent(ctx, "payment.failed", &payment)
			continue
		}

		// Transient store failure: leave the payment SCHEDULED for the next run.
		log.Printf("level=error component=workflow op=process_due_payments msg=\"promotion deferred\" payment_id=%s err=%v", payment.PaymentID, commitErr)
	}
	return promoted, failed, nil
}

func (s *Service) validatePaymentRequest(amount decimal.Decimal, currency string) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "amount must be greater than zero"}
	}
	if _, err := normalizeCurrency(currency); err != nil {
		return err
	}
	return nil
}

func (s *Service) consumeInitiateRateLimit(ctx context.Context, sourceAccountID uuid.UUID) error {
	if s.rateLimiter == nil || s.initiateRatePerMin <= 0 {
		return nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "initiate_payment", sourceAccountID.String(), s.initiateRatePerMin, time.Minute)
	if err != nil {
		// A broken limiter never blocks payments.
		log.Printf("level=warn component=workflow op=initiate_payment msg=\"rate limiter unavailable\" err=%v", err)
		return nil
	}
	if count > s.initiateRatePerMin {
		return &RateLimitedError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

func (s *Service) publishPaymentEvent(ctx context.Context, routingKey string, payment *domain.Payment) {
	if s.events == nil {
		return
	}
	event := rabbitmq.PaymentEvent{
		PaymentID:       payment.PaymentID,
		Status:          string(payment.Status),
		Type:            string(payment.Type),
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		SourceAccountID: payment.SourceAccountID,
		BeneficiaryID:   payment.BeneficiaryID,
		OccurredAt:      time.Now().UTC(),
	}
	if err := s.events.PublishPaymentEvent(ctx, routingKey, event); err != nil {
		log.Printf("level=warn component=workflow msg=\"event publish failed\" routing_key=%s payment_id=%s err=%v", routingKey, payment.PaymentID, err)
	}
}
