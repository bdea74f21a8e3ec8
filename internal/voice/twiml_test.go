package voice

import (
	"strings"
	"testing"
)

func newTestClient(t *testing.T) *TwilioClient {
	t.Helper()
	client, err := NewTwilioClient(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+61400000000",
	})
	if err != nil {
		t.Fatalf("NewTwilioClient returned error: %v", err)
	}
	return client
}

func TestNotificationTwiML(t *testing.T) {
	client := newTestClient(t)

	twiml, err := client.NotificationTwiML(NotificationParams{
		CustomerName: "Sarah",
		JobType:      "Plumbing",
		Location:     "Bondi",
		ActionURL:    "/twilio/tradie-response?leadId=lead-1",
	})
	if err != nil {
		t.Fatalf("NotificationTwiML returned error: %v", err)
	}

	for _, want := range []string{
		"<Response>",
		"<Gather",
		`numDigits="1"`,
		"/twilio/tradie-response?leadId=lead-1",
		"Sarah",
		"Plumbing",
		"Bondi",
		"Press 1",
		"press 2",
		`voice="Polly.Nicole"`,
		`language="en-AU"`,
		"<Hangup>",
	} {
		if !strings.Contains(twiml, want) {
			t.Fatalf("expected twiml to contain %q:\n%s", want, twiml)
		}
	}
}

func TestNotificationTwiML_AnonymousCustomer(t *testing.T) {
	client := newTestClient(t)

	twiml, err := client.NotificationTwiML(NotificationParams{
		JobType:   "Electrical",
		ActionURL: "/twilio/tradie-response",
	})
	if err != nil {
		t.Fatalf("NotificationTwiML returned error: %v", err)
	}
	if !strings.Contains(twiml, "a customer") {
		t.Fatalf("expected fallback customer name:\n%s", twiml)
	}
}

func TestNotificationTwiML_RequiresActionURL(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.NotificationTwiML(NotificationParams{}); err == nil {
		t.Fatal("expected error without action url")
	}
}

func TestBridgeTwiML(t *testing.T) {
	client := newTestClient(t)

	twiml, err := client.BridgeTwiML("+61411222333", "/twilio/call-complete")
	if err != nil {
		t.Fatalf("BridgeTwiML returned error: %v", err)
	}
	for _, want := range []string{
		"<Dial",
		`action="/twilio/call-complete"`,
		`callerId="+61400000000"`,
		"<Number>+61411222333</Number>",
	} {
		if !strings.Contains(twiml, want) {
			t.Fatalf("expected twiml to contain %q:\n%s", want, twiml)
		}
	}
}

func TestBridgeTwiML_RequiresCustomerPhone(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.BridgeTwiML("", "/twilio/call-complete"); err == nil {
		t.Fatal("expected error without customer phone")
	}
}

func TestTerminalTwiMLResponsesHangUp(t *testing.T) {
	client := newTestClient(t)

	cases := map[string]func() (string, error){
		"skip":        client.SkipTwiML,
		"invalid":     client.InvalidInputTwiML,
		"unavailable": client.UnavailableTwiML,
	}
	for name, build := range cases {
		twiml, err := build()
		if err != nil {
			t.Fatalf("%s returned error: %v", name, err)
		}
		if !strings.Contains(twiml, "<Hangup>") {
			t.Fatalf("%s: expected hangup verb:\n%s", name, twiml)
		}
		if !strings.Contains(twiml, "<Say") {
			t.Fatalf("%s: expected spoken prompt:\n%s", name, twiml)
		}
	}
}
