package community

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kredmitra/internal/advisor"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/graph"
	"kredmitra/internal/common/llm/llmtest"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
	"kredmitra/internal/notify"
)

// ==========================
// Test Helper Functions
// ==========================

type sentSMS struct {
	phone, message string
}

type stubSMS struct {
	sent []sentSMS
}

func (s *stubSMS) SendSMS(_ context.Context, phone, message string) (*notify.Receipt, error) {
	s.sent = append(s.sent, sentSMS{phone, message})
	return &notify.Receipt{Channel: notify.ChannelSMS}, nil
}

func newService(t *testing.T) (*Service, *graph.MemoryClient, *llmtest.Fake, *stubSMS) {
	t.Helper()
	client := graph.NewMemoryClient()
	fake := llmtest.New()
	sms := &stubSMS{}
	log := logger.NewTestLogger(t)
	svc := NewService(client, advisor.New(fake, log), sms, log)
	svc.now = func() time.Time { return time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC) }
	return svc, client, fake, sms
}

// ==========================
// Writes
// ==========================

func TestService_RecordReference(t *testing.T) {
	svc, client, _, _ := newService(t)

	err := svc.RecordReference(context.Background(), "9876543210", "Ramesh Kumar",
		models.Reference{Name: "  Suresh   Patil ", Relationship: "Neighbour"})
	require.NoError(t, err)

	calls := client.WriteCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Query, "VOUCHES_FOR")
	assert.Equal(t, "9876543210", calls[0].Params["applicant"])
	assert.Equal(t, "9876543210:suresh patil", calls[0].Params["refKey"])
	assert.Equal(t, "Suresh   Patil", calls[0].Params["refName"])
	assert.Equal(t, "Neighbour", calls[0].Params["relationship"])
	assert.Equal(t, "2026-02-14T12:00:00Z", calls[0].Params["at"])

	err = svc.RecordReference(context.Background(), "9876543210", "Ramesh Kumar", models.Reference{})
	assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
}

func TestService_RecordVouch(t *testing.T) {
	tests := []struct {
		name      string
		voucher   string
		applicant string
		validate  func(t *testing.T, client *graph.MemoryClient, err error)
	}{
		{
			name:      "confirmed edge",
			voucher:   "9988776655",
			applicant: "9876543210",
			validate: func(t *testing.T, client *graph.MemoryClient, err error) {
				require.NoError(t, err)
				calls := client.WriteCalls()
				require.Len(t, calls, 1)
				assert.Equal(t, true, calls[0].Params["confirmed"])
				assert.Equal(t, "Cousin", calls[0].Params["relationship"])
			},
		},
		{
			name:      "self vouch",
			voucher:   "9876543210",
			applicant: "9876543210",
			validate: func(t *testing.T, client *graph.MemoryClient, err error) {
				assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
				assert.Empty(t, client.WriteCalls())
			},
		},
		{
			name:      "bad mobile",
			voucher:   "99887",
			applicant: "9876543210",
			validate: func(t *testing.T, client *graph.MemoryClient, err error) {
				assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, client, _, _ := newService(t)
			err := svc.RecordVouch(context.Background(), tt.voucher, tt.applicant, "Cousin")
			tt.validate(t, client, err)
		})
	}
}

func TestService_GraphFailure(t *testing.T) {
	svc, client, _, _ := newService(t)
	client.WithError(errors.New("bolt: connection reset"))

	err := svc.RecordVouch(context.Background(), "9988776655", "9876543210", "")
	assert.Equal(t, commonerrors.ErrCodeDatabaseError, commonerrors.CodeOf(err))

	_, err = svc.References(context.Background(), "9876543210")
	assert.Equal(t, commonerrors.ErrCodeDatabaseError, commonerrors.CodeOf(err))
}

// ==========================
// Reads
// ==========================

func TestService_References(t *testing.T) {
	svc, client, _, _ := newService(t)
	client.PushReadResult(graph.Result{Records: []graph.Record{
		{"name": "", "mobile": "9988776655", "relationship": "Cousin", "confirmed": true},
		{"name": "Suresh Patil", "mobile": "", "relationship": "Neighbour", "confirmed": false},
	}})

	refs, err := svc.References(context.Background(), "9876543210")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, Vouch{Mobile: "9988776655", Relationship: "Cousin", Confirmed: true}, refs[0])
	assert.Equal(t, "Suresh Patil", refs[1].Name)
	assert.False(t, refs[1].Confirmed)

	assert.Equal(t, "9876543210", client.ReadCalls()[0].Params["applicant"])

	empty, err := svc.References(context.Background(), "9000000000")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// ==========================
// Vouch requests
// ==========================

func TestService_RequestVouch(t *testing.T) {
	svc, client, fake, sms := newService(t)
	fake.Respond(advisor.OpVouchingSMS, "Ramesh needs your vouch on KredMitra. Reply YES.")

	msg, err := svc.RequestVouch(context.Background(), "9876543210", "Ramesh", "9988776655")
	require.NoError(t, err)
	assert.Equal(t, "Ramesh needs your vouch on KredMitra. Reply YES.", msg)
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "9988776655", sms.sent[0].phone)

	calls := client.WriteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, false, calls[0].Params["confirmed"])
	assert.Nil(t, calls[0].Params["relationship"])
}

func TestService_RequestVouchFallbackCopy(t *testing.T) {
	svc, _, _, sms := newService(t)

	msg, err := svc.RequestVouch(context.Background(), "9876543210", "Ramesh", "9988776655")
	require.NoError(t, err)
	assert.Contains(t, msg, "Ramesh has named you as a community reference")
	assert.Equal(t, msg, sms.sent[0].message)
}
