package purchase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/payment"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// ----- in-memory fakes -----

type fakeInventory struct {
	mu    sync.Mutex
	types map[uint64]*model.TicketType
	fail  error // forced error from ReserveAndDecrement
}

func (f *fakeInventory) GetTicketType(_ context.Context, eventID, ticketTypeID uint64) (*model.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.types[ticketTypeID]
	if !ok || t.EventID != eventID {
		return nil, repository.ErrTicketTypeNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeInventory) ReserveAndDecrement(_ context.Context, eventID, ticketTypeID uint64, qty uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	t, ok := f.types[ticketTypeID]
	if !ok || t.EventID != eventID {
		return 0, repository.ErrTicketTypeNotFound
	}
	if t.Quantity < qty {
		return t.Quantity, repository.ErrOutOfStock
	}
	t.Quantity -= qty
	return t.Quantity, nil
}

type fakeGateway struct {
	calls int
	fail  error
}

func (f *fakeGateway) InitializeTransaction(_ context.Context, email string, amountMinor uint32, currency, reference, callbackURL string) (*payment.CheckoutSession, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return &payment.CheckoutSession{
		AuthorizationURL: "https://checkout.example/" + reference,
		Reference:        reference,
	}, nil
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[string]*model.PurchaseAttempt
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{attempts: make(map[string]*model.PurchaseAttempt)}
}

func (f *fakeAttempts) Put(_ context.Context, a *model.PurchaseAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.attempts[a.Reference] = &cp
	return nil
}

func (f *fakeAttempts) Get(_ context.Context, reference string) (*model.PurchaseAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[reference]
	if !ok {
		return nil, repository.ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) CompareAndSwap(_ context.Context, reference, from, to string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[reference]
	if !ok {
		return false, "", repository.ErrAttemptNotFound
	}
	if a.Status != from {
		return false, a.Status, nil
	}
	a.Status = to
	return true, from, nil
}

func (f *fakeAttempts) ForceStatus(_ context.Context, reference, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[reference]
	if !ok {
		return repository.ErrAttemptNotFound
	}
	a.Status = status
	return nil
}

func (f *fakeAttempts) StaleReferences(_ context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []string
	for ref, a := range f.attempts {
		if a.Status == model.AttemptAwaiting && a.CreatedAt.Before(cutoff) {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (f *fakeAttempts) status(reference string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attempts[reference]; ok {
		return a.Status
	}
	return ""
}

type fakeLedger struct {
	mu      sync.Mutex
	records []*model.AttendeeRecord
	fail    error
}

func (f *fakeLedger) Append(_ context.Context, rec *model.AttendeeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for _, r := range f.records {
		if r.EventID == rec.EventID && r.PaymentRef == rec.PaymentRef {
			return repository.ErrDuplicateAttendee
		}
	}
	cp := *rec
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeIssuer struct {
	mu     sync.Mutex
	issued map[string]*model.Credential
	fail   error
}

func (f *fakeIssuer) Issue(_ context.Context, rec *model.AttendeeRecord) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if f.issued == nil {
		f.issued = make(map[string]*model.Credential)
	}
	key := fmt.Sprintf("%d_%s_%d", rec.EventID, rec.BuyerEmail, rec.TicketTypeID)
	if c, ok := f.issued[key]; ok {
		return c, nil
	}
	c := &model.Credential{Key: key, EventID: rec.EventID, BuyerEmail: rec.BuyerEmail,
		TicketTypeID: rec.TicketTypeID, PaymentRef: rec.PaymentRef, Payload: "payload-" + key}
	f.issued[key] = c
	return c, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) TicketIssued(_ context.Context, _ *model.AttendeeRecord, _ *model.Credential) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

type fakeAlerter struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeAlerter) Inconsistent(reference, reason string) {
	f.mu.Lock()
	f.reasons = append(f.reasons, reason)
	f.mu.Unlock()
}

func (f *fakeAlerter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reasons)
}

// ----- harness -----

type fixture struct {
	orch     *Orchestrator
	inv      *fakeInventory
	gw       *fakeGateway
	attempts *fakeAttempts
	ledger   *fakeLedger
	issuer   *fakeIssuer
	notifier *fakeNotifier
	alerter  *fakeAlerter
}

func newFixture(quantity uint32) *fixture {
	f := &fixture{
		inv: &fakeInventory{types: map[uint64]*model.TicketType{
			7: {ID: 7, EventID: 3, Label: "VIP", PriceMinor: 15000, Quantity: quantity},
		}},
		gw:       &fakeGateway{},
		attempts: newFakeAttempts(),
		ledger:   &fakeLedger{},
		issuer:   &fakeIssuer{},
		notifier: &fakeNotifier{},
		alerter:  &fakeAlerter{},
	}
	f.orch = New(f.inv, f.gw, f.attempts, f.ledger, f.issuer, f.notifier, f.alerter,
		"NGN", "https://front.example/callback", 30*time.Minute)
	return f
}

func (f *fixture) start(t *testing.T) *StartResult {
	t.Helper()
	res, err := f.orch.Start(context.Background(),
		Buyer{Email: "buyer@example.com", Name: "B"}, 3, 7, 15000)
	require.NoError(t, err)
	require.NotEmpty(t, res.Reference)
	return res
}

func successEvent(reference string, amount uint32) *payment.PaymentEvent {
	return &payment.PaymentEvent{
		Kind:          payment.EventChargeSuccess,
		Reference:     reference,
		AmountMinor:   amount,
		Currency:      "NGN",
		CustomerEmail: "buyer@example.com",
	}
}

// ----- tests -----

func TestStartRejectsAmountMismatch(t *testing.T) {
	f := newFixture(5)
	_, err := f.orch.Start(context.Background(), Buyer{Email: "buyer@example.com"}, 3, 7, 14999)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Zero(t, f.gw.calls, "gateway must not be called on a mismatch")
}

func TestStartRejectsSoldOut(t *testing.T) {
	f := newFixture(0)
	_, err := f.orch.Start(context.Background(), Buyer{Email: "buyer@example.com"}, 3, 7, 15000)
	assert.ErrorIs(t, err, repository.ErrOutOfStock)
	assert.Zero(t, f.gw.calls)
}

func TestStartRecordsAwaitingAttempt(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)
	assert.Contains(t, res.CheckoutURL, res.Reference)
	assert.Equal(t, model.AttemptAwaiting, f.attempts.status(res.Reference))
	// Start never reserves stock.
	assert.Equal(t, uint32(5), f.inv.types[7].Quantity)
}

func TestSuccessWebhookConfirmsAndIssues(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	outcome, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)

	assert.Equal(t, model.AttemptConfirmed, f.attempts.status(res.Reference))
	assert.Equal(t, uint32(4), f.inv.types[7].Quantity)
	assert.Equal(t, 1, f.ledger.count())
	assert.Equal(t, 1, f.notifier.calls)
	assert.Zero(t, f.alerter.count())
}

func TestDuplicateSuccessWebhookIsNoOp(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	ev := successEvent(res.Reference, 15000)
	_, err := f.orch.HandlePaymentEvent(context.Background(), ev)
	require.NoError(t, err)

	outcome, err := f.orch.HandlePaymentEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	// Nothing moved the second time.
	assert.Equal(t, uint32(4), f.inv.types[7].Quantity)
	assert.Equal(t, 1, f.ledger.count())
	assert.Equal(t, 1, f.notifier.calls)
}

func TestFailureWebhookMarksFailed(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	ev := successEvent(res.Reference, 15000)
	ev.Kind = payment.EventChargeFailed
	outcome, err := f.orch.HandlePaymentEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, model.AttemptFailed, f.attempts.status(res.Reference))
	assert.Equal(t, uint32(5), f.inv.types[7].Quantity)
	assert.Zero(t, f.ledger.count())

	// A success arriving after the failure is a duplicate, not a confirmation.
	outcome, err = f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, model.AttemptFailed, f.attempts.status(res.Reference))
}

func TestUnknownReferenceIsFlagged(t *testing.T) {
	f := newFixture(5)
	outcome, err := f.orch.HandlePaymentEvent(context.Background(), successEvent("event:9:ticket:9:1", 15000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownRef, outcome)
	assert.Equal(t, 1, f.alerter.count())
	assert.Zero(t, f.ledger.count())
}

func TestAmountMismatchLeavesAttemptUntouched(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	outcome, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 10000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmountMismatch, outcome)
	assert.Equal(t, 1, f.alerter.count())
	// Still awaiting: an operator decides, a corrected webhook could still land.
	assert.Equal(t, model.AttemptAwaiting, f.attempts.status(res.Reference))
	assert.Equal(t, uint32(5), f.inv.types[7].Quantity)
	assert.Zero(t, f.ledger.count())
}

func TestPaymentWithoutStockIsFlaggedAndFailed(t *testing.T) {
	f := newFixture(1)
	res := f.start(t)

	// Stock disappears between checkout and webhook.
	f.inv.types[7].Quantity = 0

	outcome, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInconsistent, outcome)
	assert.Equal(t, model.AttemptFailed, f.attempts.status(res.Reference))
	assert.Equal(t, 1, f.alerter.count())
	assert.Zero(t, f.ledger.count())
	assert.Zero(t, f.notifier.calls)
}

func TestTransientDecrementErrorReleasesClaim(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	f.inv.fail = fmt.Errorf("connection reset")
	_, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.Error(t, err)
	// The claim was reverted so the gateway's redelivery can retry.
	assert.Equal(t, model.AttemptAwaiting, f.attempts.status(res.Reference))

	f.inv.fail = nil
	outcome, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)
	assert.Equal(t, uint32(4), f.inv.types[7].Quantity)
	assert.Equal(t, 1, f.ledger.count())
}

func TestLastTicketGoesToExactlyOneBuyer(t *testing.T) {
	f := newFixture(1)
	resA := f.start(t)
	resB := f.start(t)
	require.NotEqual(t, resA.Reference, resB.Reference)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	for i, ref := range []string{resA.Reference, resB.Reference} {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			outcomes[i], errs[i] = f.orch.HandlePaymentEvent(context.Background(), successEvent(ref, 15000))
		}(i, ref)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	confirmed, inconsistent := 0, 0
	for _, out := range outcomes {
		switch out {
		case OutcomeConfirmed:
			confirmed++
		case OutcomeInconsistent:
			inconsistent++
		}
	}
	assert.Equal(t, 1, confirmed, "exactly one buyer gets the last ticket")
	assert.Equal(t, 1, inconsistent, "the loser is flagged for reconciliation")
	assert.Equal(t, uint32(0), f.inv.types[7].Quantity)
	assert.Equal(t, 1, f.ledger.count())
}

func TestExpireThenLateSuccessIsFlagged(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	require.NoError(t, f.orch.Expire(context.Background(), res.Reference))
	assert.Equal(t, model.AttemptExpired, f.attempts.status(res.Reference))

	outcome, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLateSuccess, outcome)
	assert.Equal(t, 1, f.alerter.count())
	// Late money never mints a ticket automatically.
	assert.Equal(t, uint32(5), f.inv.types[7].Quantity)
	assert.Zero(t, f.ledger.count())
}

func TestExpireLeavesTerminalAttemptsAlone(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)
	_, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.NoError(t, err)

	require.NoError(t, f.orch.Expire(context.Background(), res.Reference))
	assert.Equal(t, model.AttemptConfirmed, f.attempts.status(res.Reference))

	// Expiring a vanished reference is a no-op, not an error.
	require.NoError(t, f.orch.Expire(context.Background(), "gone"))
}

func TestExpireStaleSweepsOldAttempts(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	// Backdate the attempt past the checkout window.
	f.attempts.mu.Lock()
	f.attempts.attempts[res.Reference].CreatedAt = time.Now().UTC().Add(-time.Hour)
	f.attempts.mu.Unlock()

	require.NoError(t, f.orch.ExpireStale(context.Background()))
	assert.Equal(t, model.AttemptExpired, f.attempts.status(res.Reference))
}

func TestLedgerFailureAfterConfirmationIsFlaggedNotRetried(t *testing.T) {
	f := newFixture(5)
	res := f.start(t)

	f.ledger.fail = fmt.Errorf("disk full")
	outcome, err := f.orch.HandlePaymentEvent(context.Background(), successEvent(res.Reference, 15000))
	require.NoError(t, err, "an acknowledged outcome stops gateway redelivery")
	assert.Equal(t, OutcomeConfirmed, outcome)
	assert.Equal(t, 1, f.alerter.count())
	// Confirmed stays confirmed; a retry would decrement stock twice.
	assert.Equal(t, model.AttemptConfirmed, f.attempts.status(res.Reference))
}
