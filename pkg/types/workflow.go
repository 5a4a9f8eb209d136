package types

import "time"

type WorkflowStatus string

const (
	StatusAutoApprove         WorkflowStatus = "auto_approve"
	StatusHITLReviewPending   WorkflowStatus = "hitl_review_pending"
	StatusMandatoryFixPending WorkflowStatus = "mandatory_fix_pending"
	StatusApproved            WorkflowStatus = "approved"
	StatusRejected            WorkflowStatus = "rejected"
	StatusFixed               WorkflowStatus = "fixed"
	StatusError               WorkflowStatus = "error"
)

var allStatuses = []WorkflowStatus{
	StatusAutoApprove,
	StatusHITLReviewPending,
	StatusMandatoryFixPending,
	StatusApproved,
	StatusRejected,
	StatusFixed,
	StatusError,
}

// ParseWorkflowStatus returns the status named by s, or false when s is not a known status.
func ParseWorkflowStatus(s string) (WorkflowStatus, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s WorkflowStatus) Pending() bool {
	return s == StatusHITLReviewPending || s == StatusMandatoryFixPending
}

func (s WorkflowStatus) Terminal() bool {
	switch s {
	case StatusAutoApprove, StatusApproved, StatusRejected, StatusFixed, StatusError:
		return true
	default:
		return false
	}
}

type WorkflowRecord struct {
	ID            string         `json:"id"`
	Status        WorkflowStatus `json:"status"`
	DocumentTitle string         `json:"document_title"`
	DocumentURL   string         `json:"document_url,omitempty"`
	Score         int            `json:"score"`
	Level         Level          `json:"level"`
	TicketID      *string        `json:"ticket_id,omitempty"`
	TicketURL     *string        `json:"ticket_url,omitempty"`
	TicketState   string         `json:"ticket_state,omitempty"`
	TicketLabels  []string       `json:"ticket_labels,omitempty"`
	Message       string         `json:"message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type WorkflowSummary struct {
	TotalWorkflows int                    `json:"total_workflows"`
	CountsByStatus map[WorkflowStatus]int `json:"counts_by_status"`
	RecentRecords  []WorkflowRecord       `json:"recent_records"`
}
