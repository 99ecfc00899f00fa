package model

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

type WorkflowState string

const (
	StateDraft       WorkflowState = "Draft"
	StateSubmitted   WorkflowState = "Submitted"
	StateUnderReview WorkflowState = "Under Review"
	StateApproved    WorkflowState = "Approved"
	StateRejected    WorkflowState = "Rejected"
)

var workflowStates = []WorkflowState{
	StateDraft,
	StateSubmitted,
	StateUnderReview,
	StateApproved,
	StateRejected,
}

// ParseWorkflowState accepts the canonical names as well as compact and
// snake-cased spellings ("UnderReview", "under_review").
func ParseWorkflowState(value string) (WorkflowState, bool) {
	key := stateKey(value)
	if key == "" {
		return "", false
	}
	for _, state := range workflowStates {
		if stateKey(string(state)) == key {
			return state, true
		}
	}
	return "", false
}

// Action is the audit action recorded when a document enters the state.
func (s WorkflowState) Action() string {
	return strings.ToUpper(string(s))
}

func (s WorkflowState) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

func stateKey(value string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(value)))
}

type Document struct {
	ID            string         `gorm:"type:varchar(64);primary_key" json:"id"`
	Title         string         `json:"title"`
	Author        string         `gorm:"not null;index" json:"author"`
	WorkflowState WorkflowState  `gorm:"type:varchar(32);not null;default:'Draft';index" json:"workflowState"`
	Tags          pq.StringArray `gorm:"type:text[]" json:"tags"`
	Version       int64          `gorm:"not null;default:0" json:"version"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (Document) TableName() string {
	return "documents"
}
