package leads

import (
	"strings"
	"time"
)

// Status tracks a lead through the notification pipeline.
type Status string

const (
	StatusReceived        Status = "Received"
	StatusNotified        Status = "Notified"
	StatusSkippedDND      Status = "Skipped_DND"
	StatusFailed          Status = "Failed"
	StatusCallingCustomer Status = "Calling Customer"
	StatusCompleted       Status = "Completed"
)

// Lead represents one inbound job opportunity from the marketplace.
// Records are partitioned by the yyyy-MM-dd of ReceivedAt with the
// externally assigned lead id as the row key.
type Lead struct {
	Date          string    `dynamodbav:"date" json:"-"`
	LeadID        string    `dynamodbav:"leadId" json:"leadId"`
	CustomerName  string    `dynamodbav:"customerName,omitempty" json:"customerName,omitempty"`
	CustomerPhone string    `dynamodbav:"customerPhone,omitempty" json:"customerPhone,omitempty"`
	JobType       string    `dynamodbav:"jobType,omitempty" json:"jobType,omitempty"`
	Location      string    `dynamodbav:"location,omitempty" json:"location,omitempty"`
	Description   string    `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Budget        string    `dynamodbav:"budget,omitempty" json:"budget,omitempty"`
	Timing        string    `dynamodbav:"timing,omitempty" json:"timing,omitempty"`
	TradiePhone   string    `dynamodbav:"tradiePhone" json:"tradiePhone"`
	ReceivedAt    time.Time `dynamodbav:"receivedAt" json:"receivedAt"`
	Status        Status    `dynamodbav:"status" json:"status"`
	CallID        string    `dynamodbav:"callId,omitempty" json:"callId,omitempty"`
}

// SubmitLeadRequest is the intake payload posted by the watcher agent.
type SubmitLeadRequest struct {
	LeadID        string `json:"leadId"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	JobType       string `json:"jobType"`
	Location      string `json:"location"`
	TradiePhone   string `json:"tradiePhone"`
	Description   string `json:"description,omitempty"`
	Budget        string `json:"budget,omitempty"`
	Timing        string `json:"timing,omitempty"`
	DNDStartHour  *int   `json:"dndStartHour,omitempty"`
	DNDEndHour    *int   `json:"dndEndHour,omitempty"`
}

// Validate checks the fields required before any store write.
func (r *SubmitLeadRequest) Validate() error {
	if strings.TrimSpace(r.LeadID) == "" {
		return ErrMissingLeadID
	}
	if strings.TrimSpace(r.TradiePhone) == "" {
		return ErrMissingTradiePhone
	}
	return nil
}

// NewLead builds the Received lead record for an accepted request.
func NewLead(req *SubmitLeadRequest, now time.Time) *Lead {
	now = now.UTC()
	return &Lead{
		Date:          now.Format(DateLayout),
		LeadID:        req.LeadID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		JobType:       req.JobType,
		Location:      req.Location,
		Description:   req.Description,
		Budget:        req.Budget,
		Timing:        req.Timing,
		TradiePhone:   req.TradiePhone,
		ReceivedAt:    now,
		Status:        StatusReceived,
	}
}
