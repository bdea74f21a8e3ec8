package voice

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

const testAuthToken = "test-auth-token-12345"

func signPayload(t *testing.T, webhookURL string, form url.Values, token string) string {
	t.Helper()
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, k := range keys {
		for _, v := range form[k] {
			payload.WriteString(k)
			payload.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature_Valid(t *testing.T) {
	webhookURL := "https://relay.example.com/twilio/status"
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "completed")

	req := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", signPayload(t, webhookURL, form, testAuthToken))

	if !ValidateSignature(req, testAuthToken, webhookURL) {
		t.Fatal("expected valid signature to pass")
	}
}

func TestValidateSignature_TamperedBody(t *testing.T) {
	webhookURL := "https://relay.example.com/twilio/status"
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("CallStatus", "completed")
	signature := signPayload(t, webhookURL, form, testAuthToken)

	tampered := url.Values{}
	tampered.Set("CallSid", "CA999")
	tampered.Set("CallStatus", "completed")

	req := httptest.NewRequest("POST", webhookURL, strings.NewReader(tampered.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", signature)

	if ValidateSignature(req, testAuthToken, webhookURL) {
		t.Fatal("expected tampered body to fail validation")
	}
}

func TestValidateSignature_WrongToken(t *testing.T) {
	webhookURL := "https://relay.example.com/twilio/status"
	form := url.Values{}
	form.Set("CallSid", "CA123")

	req := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", signPayload(t, webhookURL, form, "other-token"))

	if ValidateSignature(req, testAuthToken, webhookURL) {
		t.Fatal("expected wrong token to fail validation")
	}
}

func TestValidateSignature_MissingHeader(t *testing.T) {
	req := httptest.NewRequest("POST", "https://relay.example.com/twilio/status", nil)
	if ValidateSignature(req, testAuthToken, "https://relay.example.com/twilio/status") {
		t.Fatal("expected missing header to fail validation")
	}
}

func TestValidateSignature_GETSignsURLOnly(t *testing.T) {
	webhookURL := "https://relay.example.com/twilio/notification?leadId=lead-1"
	req := httptest.NewRequest("GET", webhookURL, nil)
	req.Header.Set("X-Twilio-Signature", signPayload(t, webhookURL, url.Values{}, testAuthToken))

	if !ValidateSignature(req, testAuthToken, webhookURL) {
		t.Fatal("expected GET request signed over URL only to pass")
	}
}

func TestBuildAbsoluteURL_PrefersForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "http://internal:8080/twilio/status?x=1", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "relay.example.com")

	got := BuildAbsoluteURL(req)
	want := "https://relay.example.com/twilio/status?x=1"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestBuildAbsoluteURL_FallsBackToRequestHost(t *testing.T) {
	req := httptest.NewRequest("POST", "http://relay.local:8080/twilio/status", nil)
	got := BuildAbsoluteURL(req)
	if got != "http://relay.local:8080/twilio/status" {
		t.Fatalf("unexpected url %s", got)
	}
}
