// Package purchase implements the purchase orchestrator: the state
// machine that ties ticket inventory, the payment gateway and
// credential issuance together. An attempt moves
// AWAITING_CONFIRMATION -> {CONFIRMED|FAILED|EXPIRED}; every
// transition happens through a per-reference atomic compare-and-set
// on the attempt store, which is the sole ordering guard against
// duplicate and out-of-order webhook deliveries.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/payment"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// ErrAmountMismatch is returned from Start when the client-quoted
// amount does not equal the stored ticket price. Prices are only ever
// compared as integer minor units.
var ErrAmountMismatch = errors.New("quoted amount does not match ticket price")

// Inventory is the slice of the inventory repository the orchestrator
// needs. Decrement happens exclusively at confirmation time; Start
// only performs an advisory stock check so abandoned checkouts never
// hold inventory hostage.
type Inventory interface {
	GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (*model.TicketType, error)
	ReserveAndDecrement(ctx context.Context, eventID, ticketTypeID uint64, qty uint32) (uint32, error)
}

// Gateway opens hosted checkout sessions.
type Gateway interface {
	InitializeTransaction(ctx context.Context, email string, amountMinor uint32, currency, reference, callbackURL string) (*payment.CheckoutSession, error)
}

// Attempts is the ephemeral purchase-attempt store keyed by payment
// reference. CompareAndSwap must be atomic per reference.
type Attempts interface {
	Put(ctx context.Context, a *model.PurchaseAttempt) error
	Get(ctx context.Context, reference string) (*model.PurchaseAttempt, error)
	CompareAndSwap(ctx context.Context, reference, from, to string) (bool, string, error)
	ForceStatus(ctx context.Context, reference, status string) error
	StaleReferences(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Ledger is the append-only attendee record store.
type Ledger interface {
	Append(ctx context.Context, rec *model.AttendeeRecord) error
}

// Issuer mints the QR credential for a confirmed purchase. It must be
// idempotent per (event, buyer, ticket type, reference) tuple.
type Issuer interface {
	Issue(ctx context.Context, rec *model.AttendeeRecord) (*model.Credential, error)
}

// Notifier delivers the issued credential out of band (email queue).
// Failures are logged by implementations and never fail a purchase.
type Notifier interface {
	TicketIssued(ctx context.Context, rec *model.AttendeeRecord, cred *model.Credential)
}

// Alerter surfaces states that need an operator: payments captured
// without stock, unknown or late references, amount mismatches. These
// are never auto-recovered.
type Alerter interface {
	Inconsistent(reference, reason string)
}

// Outcome describes how a webhook event was handled. All outcomes are
// acknowledged with HTTP 200 so the gateway stops redelivering.
type Outcome string

const (
	OutcomeConfirmed      Outcome = "purchase confirmed"
	OutcomeFailed         Outcome = "failure recorded"
	OutcomeDuplicate      Outcome = "already processed"
	OutcomeUnknownRef     Outcome = "unknown reference flagged"
	OutcomeLateSuccess    Outcome = "late success after expiry flagged"
	OutcomeAmountMismatch Outcome = "amount mismatch flagged"
	OutcomeInconsistent   Outcome = "payment without stock flagged"
)

// Buyer identifies who is checking out.
type Buyer struct {
	Email string
	Name  string
}

// StartResult is handed back to the checkout caller.
type StartResult struct {
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
}

// Orchestrator wires the collaborators together. All dependencies are
// injected so tests can substitute in-memory fakes.
type Orchestrator struct {
	inventory Inventory
	gateway   Gateway
	attempts  Attempts
	ledger    Ledger
	issuer    Issuer
	notifier  Notifier
	alerter   Alerter

	currency    string
	callbackURL string
	window      time.Duration

	now func() time.Time
}

// New constructs an Orchestrator. window is the checkout window after
// which unconfirmed attempts are expired by the sweeper. notifier and
// alerter may not be nil; pass no-op implementations if unused.
func New(inv Inventory, gw Gateway, att Attempts, led Ledger, iss Issuer, not Notifier, al Alerter, currency, callbackURL string, window time.Duration) *Orchestrator {
	return &Orchestrator{
		inventory:   inv,
		gateway:     gw,
		attempts:    att,
		ledger:      led,
		issuer:      iss,
		notifier:    not,
		alerter:     al,
		currency:    currency,
		callbackURL: callbackURL,
		window:      window,
		now:         time.Now,
	}
}

// newReference builds the checkout reference in the established
// format: event:<id>:ticket:<id>:<monotonic>. The nanosecond clock
// keeps references unique per attempt even for the same buyer and
// ticket.
func (o *Orchestrator) newReference(eventID, ticketTypeID uint64) string {
	return fmt.Sprintf("event:%d:ticket:%d:%d", eventID, ticketTypeID, o.now().UnixNano())
}

// Start begins a checkout. It validates that the ticket type exists
// and still has stock (advisory only; nothing is reserved here),
// checks the quoted amount against the stored price, opens the
// gateway session and records the attempt as AWAITING_CONFIRMATION.
func (o *Orchestrator) Start(ctx context.Context, buyer Buyer, eventID, ticketTypeID uint64, quotedMinor uint32) (*StartResult, error) {
	tt, err := o.inventory.GetTicketType(ctx, eventID, ticketTypeID)
	if err != nil {
		return nil, err
	}
	if tt.Quantity == 0 {
		return nil, repository.ErrOutOfStock
	}
	if quotedMinor != tt.PriceMinor {
		return nil, ErrAmountMismatch
	}

	reference := o.newReference(eventID, ticketTypeID)
	session, err := o.gateway.InitializeTransaction(ctx, buyer.Email, tt.PriceMinor, o.currency, reference, o.callbackURL)
	if err != nil {
		return nil, err
	}

	attempt := &model.PurchaseAttempt{
		Reference:    reference,
		EventID:      eventID,
		TicketTypeID: ticketTypeID,
		BuyerEmail:   buyer.Email,
		BuyerName:    buyer.Name,
		AmountMinor:  tt.PriceMinor,
		Status:       model.AttemptAwaiting,
		CreatedAt:    o.now().UTC(),
	}
	if err := o.attempts.Put(ctx, attempt); err != nil {
		return nil, fmt.Errorf("store purchase attempt: %w", err)
	}
	return &StartResult{CheckoutURL: session.AuthorizationURL, Reference: reference}, nil
}

// GetStatus returns the attempt stored under a reference. Redirect
// pages poll this as a display hint; it never drives a transition.
func (o *Orchestrator) GetStatus(ctx context.Context, reference string) (*model.PurchaseAttempt, error) {
	return o.attempts.Get(ctx, reference)
}

// HandlePaymentEvent processes one verified webhook event. It is safe
// under duplicate and out-of-order delivery: the CAS on the attempt
// status admits exactly one confirmation per reference, and every
// other delivery collapses into an acknowledged no-op or a flagged
// reconciliation case. Only infrastructure failures return an error,
// which makes the gateway redeliver.
func (o *Orchestrator) HandlePaymentEvent(ctx context.Context, ev *payment.PaymentEvent) (Outcome, error) {
	attempt, err := o.attempts.Get(ctx, ev.Reference)
	if errors.Is(err, repository.ErrAttemptNotFound) {
		o.alerter.Inconsistent(ev.Reference, "payment event for unknown reference")
		return OutcomeUnknownRef, nil
	}
	if err != nil {
		return "", fmt.Errorf("load attempt %s: %w", ev.Reference, err)
	}

	if !ev.Success() {
		swapped, _, err := o.attempts.CompareAndSwap(ctx, ev.Reference, model.AttemptAwaiting, model.AttemptFailed)
		if err != nil && !errors.Is(err, repository.ErrAttemptNotFound) {
			return "", fmt.Errorf("record failure for %s: %w", ev.Reference, err)
		}
		if !swapped {
			return OutcomeDuplicate, nil
		}
		return OutcomeFailed, nil
	}

	// The gateway's amount is authoritative for what was captured;
	// if it disagrees with what we quoted we refuse to issue and
	// leave the attempt for the operator.
	if ev.AmountMinor != attempt.AmountMinor {
		o.alerter.Inconsistent(ev.Reference,
			fmt.Sprintf("webhook amount %d does not match attempt amount %d", ev.AmountMinor, attempt.AmountMinor))
		return OutcomeAmountMismatch, nil
	}

	swapped, prev, err := o.attempts.CompareAndSwap(ctx, ev.Reference, model.AttemptAwaiting, model.AttemptConfirmed)
	if errors.Is(err, repository.ErrAttemptNotFound) {
		o.alerter.Inconsistent(ev.Reference, "attempt vanished during confirmation")
		return OutcomeUnknownRef, nil
	}
	if err != nil {
		return "", fmt.Errorf("confirm attempt %s: %w", ev.Reference, err)
	}
	if !swapped {
		if prev == model.AttemptExpired {
			o.alerter.Inconsistent(ev.Reference, "success webhook arrived after expiry")
			return OutcomeLateSuccess, nil
		}
		// Already CONFIRMED or FAILED: duplicate delivery, nothing to do.
		return OutcomeDuplicate, nil
	}

	// This caller won the confirmation; it alone mutates inventory
	// and the ledger.
	if _, err := o.inventory.ReserveAndDecrement(ctx, attempt.EventID, attempt.TicketTypeID, 1); err != nil {
		if errors.Is(err, repository.ErrOutOfStock) || errors.Is(err, repository.ErrTicketTypeNotFound) {
			// Money was captured but there is nothing to issue.
			// Mark failed and hand it to reconciliation.
			if ferr := o.attempts.ForceStatus(ctx, ev.Reference, model.AttemptFailed); ferr != nil {
				log.Printf("purchase: force fail %s: %v", ev.Reference, ferr)
			}
			o.alerter.Inconsistent(ev.Reference, "payment captured but inventory exhausted")
			return OutcomeInconsistent, nil
		}
		// Transient store failure: release the claim so the
		// gateway's redelivery can run the confirmation again.
		if ferr := o.attempts.ForceStatus(ctx, ev.Reference, model.AttemptAwaiting); ferr != nil {
			log.Printf("purchase: revert claim %s: %v", ev.Reference, ferr)
		}
		return "", fmt.Errorf("decrement inventory for %s: %w", ev.Reference, err)
	}

	rec := &model.AttendeeRecord{
		EventID:      attempt.EventID,
		TicketTypeID: attempt.TicketTypeID,
		BuyerEmail:   attempt.BuyerEmail,
		BuyerName:    attempt.BuyerName,
		PaymentRef:   attempt.Reference,
		AmountMinor:  attempt.AmountMinor,
	}
	if err := o.ledger.Append(ctx, rec); err != nil {
		if !errors.Is(err, repository.ErrDuplicateAttendee) {
			// Confirmed and decremented but not recorded; this
			// needs an operator, not a silent retry that would
			// decrement again.
			o.alerter.Inconsistent(ev.Reference, fmt.Sprintf("ledger append failed: %v", err))
			return OutcomeConfirmed, nil
		}
	}

	cred, err := o.issuer.Issue(ctx, rec)
	if err != nil {
		// The credential derives deterministically from the record,
		// so it can be re-issued on demand when the buyer fetches
		// their ticket. Log and keep the purchase confirmed.
		log.Printf("purchase: issue credential for %s: %v", ev.Reference, err)
		return OutcomeConfirmed, nil
	}
	o.notifier.TicketIssued(ctx, rec, cred)
	return OutcomeConfirmed, nil
}

// Expire transitions a still-unconfirmed attempt to EXPIRED. It never
// touches inventory because Start reserved nothing. Attempts already
// terminal are left alone.
func (o *Orchestrator) Expire(ctx context.Context, reference string) error {
	swapped, _, err := o.attempts.CompareAndSwap(ctx, reference, model.AttemptAwaiting, model.AttemptExpired)
	if errors.Is(err, repository.ErrAttemptNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if swapped {
		log.Printf("purchase: attempt %s expired without confirmation", reference)
	}
	return nil
}

// ExpireStale expires every attempt older than the checkout window.
// main runs this on a ticker.
func (o *Orchestrator) ExpireStale(ctx context.Context) error {
	refs, err := o.attempts.StaleReferences(ctx, o.now().UTC().Add(-o.window))
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := o.Expire(ctx, ref); err != nil {
			log.Printf("purchase: expire %s: %v", ref, err)
		}
	}
	return nil
}
