package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// CredentialRepo persists QR credentials keyed by the composite
// (event, buyer, ticket type) tuple.  Storing under that key makes
// issuance idempotent: inserting the same credential twice returns
// the originally stored payload byte for byte.
type CredentialRepo struct {
	db *sql.DB
}

// NewCredentialRepo constructs a CredentialRepo with the given DB handle.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Put stores a credential under its composite key.  When a row with
// the same key already exists the insert is a no-op and the stored
// payload wins; the returned credential always reflects what is
// persisted.  This is what makes retried orchestrator steps safe.
func (r *CredentialRepo) Put(ctx context.Context, c *model.Credential) (*model.Credential, error) {
	const q = `INSERT INTO credentials (cred_key, event_id, buyer_email, ticket_type_id, payment_ref, payload)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		c.Key, c.EventID, c.BuyerEmail, c.TicketTypeID, c.PaymentRef, c.Payload)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "1062") {
		return nil, err
	}
	return r.GetByKey(ctx, c.Key)
}

// GetByKey fetches the credential stored under the composite key.
// sql.ErrNoRows is propagated when none exists.
func (r *CredentialRepo) GetByKey(ctx context.Context, key string) (*model.Credential, error) {
	const q = `SELECT cred_key, event_id, buyer_email, ticket_type_id, payment_ref, payload, created_at
	           FROM credentials WHERE cred_key = ?`
	var c model.Credential
	err := r.db.QueryRowContext(ctx, q, key).Scan(
		&c.Key, &c.EventID, &c.BuyerEmail, &c.TicketTypeID, &c.PaymentRef, &c.Payload, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
