package reservation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-relay/internal/sms"
)

// --- Mock implementations ---

type sentMessage struct {
	To      string
	Message string
}

type mockDispatcher struct {
	result sms.Result
	panics bool
	sent   []sentMessage
}

func (m *mockDispatcher) Send(_ context.Context, to, message string) sms.Result {
	if m.panics {
		panic("dispatcher exploded")
	}
	m.sent = append(m.sent, sentMessage{To: to, Message: message})
	return m.result
}

func okDispatcher() *mockDispatcher {
	return &mockDispatcher{result: sms.Result{Success: true}}
}

// --- Tests ---

func TestHandle_TrackedTransition(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, nil, zap.NewNop())

	r.Handle(context.Background(), ChangeEvent{
		ID:        "res-1",
		OldStatus: "pending",
		NewStatus: "confirmed",
		Phone:     "0244000000",
	})

	require.Len(t, d.sent, 1)
	assert.Equal(t, "0244000000", d.sent[0].To)
	assert.Equal(t, DefaultMessages()["confirmed"], d.sent[0].Message)
}

func TestHandle_UntrackedStatus(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, nil, zap.NewNop())

	r.Handle(context.Background(), ChangeEvent{
		ID:        "res-1",
		OldStatus: "pending",
		NewStatus: "archived",
		Phone:     "0244000000",
	})

	assert.Empty(t, d.sent)
}

func TestHandle_UnchangedStatus(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, nil, zap.NewNop())

	r.Handle(context.Background(), ChangeEvent{
		ID:        "res-1",
		OldStatus: "confirmed",
		NewStatus: "confirmed",
		Phone:     "0244000000",
	})

	assert.Empty(t, d.sent)
}

func TestHandle_StatusComparisonIsCaseAndSpaceInsensitive(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, nil, zap.NewNop())

	r.Handle(context.Background(), ChangeEvent{
		ID:        "res-1",
		OldStatus: " Confirmed ",
		NewStatus: "CONFIRMED",
		Phone:     "0244000000",
	})

	assert.Empty(t, d.sent)
}

func TestHandle_MissingPhone(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, nil, zap.NewNop())

	r.Handle(context.Background(), ChangeEvent{
		ID:        "res-1",
		OldStatus: "pending",
		NewStatus: "confirmed",
		Phone:     "  ",
	})

	assert.Empty(t, d.sent)
}

func TestHandle_MissingNewStatus(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, nil, zap.NewNop())

	r.Handle(context.Background(), ChangeEvent{ID: "res-1", Phone: "0244000000"})

	assert.Empty(t, d.sent)
}

func TestHandle_DispatchFailureIsAbsorbed(t *testing.T) {
	d := &mockDispatcher{result: sms.Result{Error: "gateway down"}}
	r := NewReactor(d, nil, zap.NewNop())

	assert.NotPanics(t, func() {
		r.Handle(context.Background(), ChangeEvent{
			ID:        "res-1",
			OldStatus: "pending",
			NewStatus: "cancelled",
			Phone:     "0244000000",
		})
	})
	assert.Len(t, d.sent, 1)
}

func TestHandle_PanicIsContained(t *testing.T) {
	d := &mockDispatcher{panics: true}
	r := NewReactor(d, nil, zap.NewNop())

	assert.NotPanics(t, func() {
		r.Handle(context.Background(), ChangeEvent{
			ID:        "res-1",
			OldStatus: "pending",
			NewStatus: "completed",
			Phone:     "0244000000",
		})
	})
}

func TestHandle_CustomMessages(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, map[string]string{"confirmed": "See you soon"}, zap.NewNop())

	r.Handle(context.Background(), ChangeEvent{
		ID:        "res-1",
		OldStatus: "pending",
		NewStatus: "confirmed",
		Phone:     "0244000000",
	})
	r.Handle(context.Background(), ChangeEvent{
		ID:        "res-2",
		OldStatus: "confirmed",
		NewStatus: "cancelled", // not in the custom table
		Phone:     "0244000000",
	})

	require.Len(t, d.sent, 1)
	assert.Equal(t, "See you soon", d.sent[0].Message)
}

func TestRun_DrainsChannelUntilClose(t *testing.T) {
	d := okDispatcher()
	r := NewReactor(d, nil, zap.NewNop())

	events := make(chan ChangeEvent, 2)
	events <- ChangeEvent{ID: "res-1", OldStatus: "pending", NewStatus: "confirmed", Phone: "0244000000"}
	events <- ChangeEvent{ID: "res-2", OldStatus: "pending", NewStatus: "archived", Phone: "0244000000"}
	close(events)

	r.Run(context.Background(), events)

	assert.Len(t, d.sent, 1)
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent([]byte(`{
		"old": {"id": "res-1", "status": "pending", "phone": "0244000000", "name": "Ama"},
		"new": {"id": "res-1", "status": "confirmed", "phone": "0244000000", "name": "Ama"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "res-1", ev.ID)
	assert.Equal(t, "pending", ev.OldStatus)
	assert.Equal(t, "confirmed", ev.NewStatus)
	assert.Equal(t, "0244000000", ev.Phone)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	_, err := decodeEvent([]byte(`not json`))
	require.Error(t, err)

	_, err = decodeEvent([]byte(`{"old": {"id": "res-1"}}`))
	require.Error(t, err)
}
