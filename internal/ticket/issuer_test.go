package ticket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// memStore is an idempotent in-memory CredentialStore: the first
// stored credential under a key wins, matching the DB-backed store.
type memStore struct {
	creds map[string]*model.Credential
	puts  int
}

func (s *memStore) Put(_ context.Context, c *model.Credential) (*model.Credential, error) {
	s.puts++
	if s.creds == nil {
		s.creds = make(map[string]*model.Credential)
	}
	if existing, ok := s.creds[c.Key]; ok {
		return existing, nil
	}
	s.creds[c.Key] = c
	return c, nil
}

func record() *model.AttendeeRecord {
	return &model.AttendeeRecord{
		EventID:      3,
		TicketTypeID: 7,
		BuyerEmail:   "buyer@example.com",
		PaymentRef:   "event:3:ticket:7:1700000000",
		AmountMinor:  15000,
	}
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "3_buyer@example.com_7", Key(3, "buyer@example.com", 7))
}

func TestIssueIsDeterministic(t *testing.T) {
	store := &memStore{}
	issuer := NewIssuer(store)

	first, err := issuer.Issue(context.Background(), record())
	require.NoError(t, err)
	assert.Equal(t, "3_buyer@example.com_7", first.Key)
	assert.JSONEq(t, `{
		"v": 1,
		"event_id": 3,
		"ticket_type_id": 7,
		"buyer": "buyer@example.com",
		"reference": "event:3:ticket:7:1700000000"
	}`, first.Payload)

	// Issuing again for the same purchase returns identical bytes.
	second, err := issuer.Issue(context.Background(), record())
	require.NoError(t, err)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, 2, store.puts, "every issue goes through the store")
	assert.Len(t, store.creds, 1)
}

func TestIssueDistinguishesTuples(t *testing.T) {
	issuer := NewIssuer(&memStore{})

	a, err := issuer.Issue(context.Background(), record())
	require.NoError(t, err)

	other := record()
	other.TicketTypeID = 8
	b, err := issuer.Issue(context.Background(), other)
	require.NoError(t, err)

	assert.NotEqual(t, a.Key, b.Key)
	assert.NotEqual(t, a.Payload, b.Payload)
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG(`{"v":1}`, 256)
	require.NoError(t, err)
	// PNG magic bytes.
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	again, err := RenderPNG(`{"v":1}`, 256)
	require.NoError(t, err)
	assert.Equal(t, png, again, "rendering is a pure function of the payload")
}
