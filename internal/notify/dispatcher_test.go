package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadbridge-au/leadbridge/internal/callevents"
	"github.com/leadbridge-au/leadbridge/internal/leads"
	"github.com/leadbridge-au/leadbridge/internal/voice"
)

type statusUpdate struct {
	leadID string
	status leads.Status
	callID string
}

type fakeLeadStore struct {
	saved     []*leads.Lead
	saveErr   error
	updates   []statusUpdate
	updateErr error
}

func (f *fakeLeadStore) Save(ctx context.Context, lead *leads.Lead) error {
	f.saved = append(f.saved, lead)
	return f.saveErr
}

func (f *fakeLeadStore) Get(ctx context.Context, leadID string, receivedDate time.Time) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}

func (f *fakeLeadStore) UpdateStatus(ctx context.Context, leadID string, receivedDate time.Time, status leads.Status, callID string) error {
	f.updates = append(f.updates, statusUpdate{leadID: leadID, status: status, callID: callID})
	return f.updateErr
}

type fakeEventStore struct {
	saved   []*callevents.CallEvent
	saveErr error
}

func (f *fakeEventStore) Save(ctx context.Context, event *callevents.CallEvent) error {
	f.saved = append(f.saved, event)
	return f.saveErr
}

func (f *fakeEventStore) Get(ctx context.Context, callID string, createdDate time.Time) (*callevents.CallEvent, error) {
	return nil, callevents.ErrCallEventNotFound
}

func (f *fakeEventStore) UpdateStatus(ctx context.Context, callID string, status callevents.Status) error {
	return nil
}

func (f *fakeEventStore) UpdateDuration(ctx context.Context, callID string, durationSeconds int, status callevents.Status) error {
	return nil
}

type fakeCaller struct {
	calls []voice.CallRequest
	sid   string
	err   error
}

func (f *fakeCaller) PlaceCall(ctx context.Context, call voice.CallRequest) (string, error) {
	f.calls = append(f.calls, call)
	if f.err != nil {
		return "", f.err
	}
	return f.sid, nil
}

type fakeAlerter struct {
	subjects []string
}

func (f *fakeAlerter) Alert(ctx context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

func newTestDispatcher(leadStore *fakeLeadStore, eventStore *fakeEventStore, caller *fakeCaller, alerter Alerter) *Dispatcher {
	d := NewDispatcher(DispatcherConfig{
		Leads:           leadStore,
		Events:          eventStore,
		Caller:          caller,
		Alerter:         alerter,
		CallbackBaseURL: "https://relay.example.com",
		CallTimeout:     time.Second,
	})
	d.now = func() time.Time {
		return time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	}
	return d
}

func validRequest() *leads.SubmitLeadRequest {
	return &leads.SubmitLeadRequest{
		LeadID:        "lead-1",
		CustomerName:  "Sarah",
		CustomerPhone: "+61411222333",
		JobType:       "Plumbing",
		Location:      "Bondi",
		TradiePhone:   "+61400000001",
	}
}

func TestDispatch_ValidationFailsBeforeAnyWrite(t *testing.T) {
	leadStore := &fakeLeadStore{}
	caller := &fakeCaller{sid: "CA123"}
	d := newTestDispatcher(leadStore, &fakeEventStore{}, caller, nil)

	req := validRequest()
	req.LeadID = ""
	_, err := d.Dispatch(context.Background(), req)

	require.ErrorIs(t, err, leads.ErrMissingLeadID)
	assert.Empty(t, leadStore.saved, "no store write before validation passes")
	assert.Empty(t, caller.calls)
}

func TestDispatch_SentPath(t *testing.T) {
	leadStore := &fakeLeadStore{}
	eventStore := &fakeEventStore{}
	caller := &fakeCaller{sid: "CA123"}
	d := newTestDispatcher(leadStore, eventStore, caller, nil)

	outcome, err := d.Dispatch(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSent, outcome.Kind)
	assert.Equal(t, "CA123", outcome.CallID)

	require.Len(t, leadStore.saved, 1)
	assert.Equal(t, leads.StatusReceived, leadStore.saved[0].Status)
	require.Len(t, leadStore.updates, 1)
	assert.Equal(t, leads.StatusNotified, leadStore.updates[0].status)
	assert.Equal(t, "CA123", leadStore.updates[0].callID)

	require.Len(t, caller.calls, 1)
	call := caller.calls[0]
	assert.Equal(t, "+61400000001", call.To)
	assert.Equal(t, "https://relay.example.com/twilio/status", call.StatusCallbackURL)
	assert.True(t, strings.HasPrefix(call.TwiMLURL, "https://relay.example.com/twilio/notification?"))
	for _, param := range []string{"leadId=lead-1", "customerName=Sarah", "jobType=Plumbing", "location=Bondi", "date=2026-03-20"} {
		assert.Contains(t, call.TwiMLURL, param)
	}

	require.Len(t, eventStore.saved, 1)
	event := eventStore.saved[0]
	assert.Equal(t, "CA123", event.CallID)
	assert.Equal(t, "lead-1", event.LeadID)
	assert.Equal(t, callevents.StatusInitiated, event.Status)
}

func TestDispatch_SuppressedByDNDWindow(t *testing.T) {
	leadStore := &fakeLeadStore{}
	caller := &fakeCaller{sid: "CA123"}
	d := newTestDispatcher(leadStore, &fakeEventStore{}, caller, nil)

	// Build a one-hour window around the dispatch time in the gate's
	// target timezone so suppression always triggers.
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	hour := d.now().In(loc).Hour()
	end := (hour + 1) % 24

	req := validRequest()
	req.DNDStartHour = &hour
	req.DNDEndHour = &end

	outcome, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuppressed, outcome.Kind)
	assert.Equal(t, ReasonDNDHours, outcome.Reason)
	assert.Empty(t, caller.calls, "no call during DND hours")

	require.Len(t, leadStore.saved, 1)
	assert.Equal(t, leads.StatusReceived, leadStore.saved[0].Status)
	require.Len(t, leadStore.updates, 1)
	assert.Equal(t, leads.StatusSkippedDND, leadStore.updates[0].status)
}

func TestDispatch_CallPlacementFailure(t *testing.T) {
	leadStore := &fakeLeadStore{}
	caller := &fakeCaller{err: errors.New("provider down")}
	alerter := &fakeAlerter{}
	d := newTestDispatcher(leadStore, &fakeEventStore{}, caller, alerter)

	outcome, err := d.Dispatch(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.ErrorContains(t, outcome.Err, "provider down")

	require.Len(t, leadStore.updates, 1)
	assert.Equal(t, leads.StatusFailed, leadStore.updates[0].status)

	require.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "lead-1")
}

func TestDispatch_SaveFailureIsFailedOutcome(t *testing.T) {
	leadStore := &fakeLeadStore{saveErr: errors.New("table missing")}
	caller := &fakeCaller{sid: "CA123"}
	d := newTestDispatcher(leadStore, &fakeEventStore{}, caller, nil)

	outcome, err := d.Dispatch(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Empty(t, caller.calls)
}

func TestDispatch_EventRecordFailureDoesNotFailDispatch(t *testing.T) {
	leadStore := &fakeLeadStore{}
	eventStore := &fakeEventStore{saveErr: errors.New("table missing")}
	caller := &fakeCaller{sid: "CA123"}
	d := newTestDispatcher(leadStore, eventStore, caller, nil)

	outcome, err := d.Dispatch(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome.Kind)
}
