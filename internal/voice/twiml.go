package voice

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
)

// TwiML verbs for the notification call flow.

const (
	sayVoice    = "Polly.Nicole"
	sayLanguage = "en-AU"
)

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName   xml.Name `xml:"Gather"`
	NumDigits int      `xml:"numDigits,attr"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	Say       twimlSay `xml:"Say"`
}

type twimlDial struct {
	XMLName  xml.Name `xml:"Dial"`
	Action   string   `xml:"action,attr,omitempty"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	Number   string   `xml:"Number"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// NotificationParams carries the lead context spoken to the tradie.
type NotificationParams struct {
	CustomerName string
	JobType      string
	Location     string
	// ActionURL receives the gathered keypress.
	ActionURL string
}

// NotificationTwiML builds the greeting + keypress gather for a new lead.
func (c *TwilioClient) NotificationTwiML(p NotificationParams) (string, error) {
	if p.ActionURL == "" {
		return "", errors.New("voice: gather action url required")
	}
	customer := p.CustomerName
	if customer == "" {
		customer = "a customer"
	}
	message := fmt.Sprintf(
		"You have a new lead. Customer name: %s. Job type: %s. Location: %s. "+
			"Press 1 to call the customer now, or press 2 to skip this lead.",
		customer, p.JobType, p.Location,
	)

	return renderTwiML(
		twimlGather{
			NumDigits: 1,
			Action:    p.ActionURL,
			Method:    "POST",
			Say:       say(message),
		},
		say("We did not receive any input. Goodbye."),
		twimlHangup{},
	)
}

// BridgeTwiML builds the response that dials the customer after a press of 1.
func (c *TwilioClient) BridgeTwiML(customerPhone, actionURL string) (string, error) {
	if customerPhone == "" {
		return "", errors.New("voice: customer phone required for bridge")
	}
	return renderTwiML(
		say("Connecting you to the customer now. Please wait."),
		twimlDial{
			Action:   actionURL,
			CallerID: c.from,
			Number:   customerPhone,
		},
	)
}

// SkipTwiML builds the response for a press of 2.
func (c *TwilioClient) SkipTwiML() (string, error) {
	return renderTwiML(
		say("Lead skipped. Goodbye."),
		twimlHangup{},
	)
}

// InvalidInputTwiML builds the response for any other keypress.
func (c *TwilioClient) InvalidInputTwiML() (string, error) {
	return renderTwiML(
		say("Invalid input. Please press 1 to call the customer or 2 to skip. Goodbye."),
		twimlHangup{},
	)
}

// UnavailableTwiML builds the response when no customer number is on file.
func (c *TwilioClient) UnavailableTwiML() (string, error) {
	return renderTwiML(
		say("Sorry, no customer number is on file for this lead. Goodbye."),
		twimlHangup{},
	)
}

func say(text string) twimlSay {
	return twimlSay{Voice: sayVoice, Language: sayLanguage, Text: text}
}

func renderTwiML(verbs ...any) (string, error) {
	r := twimlResponse{Verbs: verbs}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("voice: render twiml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return "", fmt.Errorf("voice: render twiml: %w", err)
	}
	return buf.String(), nil
}
