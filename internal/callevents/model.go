package callevents

import "time"

// Status tracks the provider-reported lifecycle of an outbound call.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusRinging   Status = "ringing"
	StatusAnswered  Status = "answered"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// CallEvent records one outbound notification call attempt, 1:1 with a
// successfully placed call. Partitioned by the yyyy-MM-dd of CreatedAt with
// the provider-assigned call id as the row key.
type CallEvent struct {
	Date            string     `dynamodbav:"date" json:"-"`
	CallID          string     `dynamodbav:"callId" json:"callId"`
	LeadID          string     `dynamodbav:"leadId" json:"leadId"`
	TradiePhone     string     `dynamodbav:"tradiePhone" json:"tradiePhone"`
	JobType         string     `dynamodbav:"jobType,omitempty" json:"jobType,omitempty"`
	Location        string     `dynamodbav:"location,omitempty" json:"location,omitempty"`
	Status          Status     `dynamodbav:"status" json:"status"`
	DurationSeconds int        `dynamodbav:"durationSeconds" json:"durationSeconds"`
	CreatedAt       time.Time  `dynamodbav:"createdAt" json:"createdAt"`
	CompletedAt     *time.Time `dynamodbav:"completedAt,omitempty" json:"completedAt,omitempty"`
	ErrorMessage    string     `dynamodbav:"errorMessage,omitempty" json:"errorMessage,omitempty"`
}
