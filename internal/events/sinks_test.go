package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfi/vaultguard/internal/domain"
)

type recordingSink struct {
	events []domain.Event
}

func (r *recordingSink) Emit(_ context.Context, ev domain.Event) {
	r.events = append(r.events, ev)
}

type fakeAudit struct {
	logged []string
	err    error
}

func (f *fakeAudit) Log(_ context.Context, event string, _ map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.logged = append(f.logged, event)
	return nil
}

func (f *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (f *fakeAudit) ListBefore(context.Context, time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeBus struct {
	published [][]byte
	appended  [][]byte
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	f.appended = append(f.appended, payload)
	return nil
}

func testEvent() domain.Event {
	return domain.Event{
		ID:     "ev-1",
		Kind:   domain.EventFundRegistered,
		At:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Fields: map[string]any{"fund": "0x1"},
	}
}

func TestMultiFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMulti(a, nil, b)

	m.Emit(context.Background(), testEvent())
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestAuditSink(t *testing.T) {
	audit := &fakeAudit{}
	s := NewAuditSink(audit, slog.Default())

	s.Emit(context.Background(), testEvent())
	require.Len(t, audit.logged, 1)
	assert.Equal(t, "registry.fund_registered", audit.logged[0])

	// A store failure is dropped, never propagated.
	audit.err = errors.New("db down")
	s.Emit(context.Background(), testEvent())
}

func TestBusSink(t *testing.T) {
	bus := &fakeBus{}
	s := NewBusSink(bus, slog.Default())

	s.Emit(context.Background(), testEvent())
	require.Len(t, bus.published, 1)
	require.Len(t, bus.appended, 1)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(bus.published[0], &ev))
	assert.Equal(t, domain.EventFundRegistered, ev.Kind)
	assert.Equal(t, "ev-1", ev.ID)
}
