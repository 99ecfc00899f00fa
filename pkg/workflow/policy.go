// Package workflow holds the document approval state machine, the
// authorization rules layered on it, and the engine that applies accepted
// transitions.
package workflow

import (
	"errors"
	"fmt"

	"github.com/docuflow/docuflow/pkg/model"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
)

// PolicyError explains why a transition was refused. It unwraps to
// ErrInvalidTransition or ErrForbidden.
type PolicyError struct {
	Kind   error
	From   model.WorkflowState
	To     model.WorkflowState
	Reason string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s -> %s: %s", e.Kind, e.From, e.To, e.Reason)
}

func (e *PolicyError) Unwrap() error {
	return e.Kind
}

// TransitionTable maps a state to its allowed successors.
type TransitionTable map[model.WorkflowState][]model.WorkflowState

// DefaultTransitions returns the document approval lifecycle. Approved and
// Rejected have no successors.
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		model.StateDraft:       {model.StateSubmitted},
		model.StateSubmitted:   {model.StateUnderReview},
		model.StateUnderReview: {model.StateApproved, model.StateRejected},
		model.StateApproved:    {},
		model.StateRejected:    {},
	}
}

// Check is the input to Policy.Validate.
type Check struct {
	From   model.WorkflowState
	To     model.WorkflowState
	Role   string
	Actor  string
	Author string
}

// Policy is immutable after construction and safe for concurrent use.
type Policy struct {
	edges map[model.WorkflowState]map[model.WorkflowState]struct{}
	order TransitionTable
}

func NewPolicy(table TransitionTable) *Policy {
	p := &Policy{
		edges: make(map[model.WorkflowState]map[model.WorkflowState]struct{}, len(table)),
		order: make(TransitionTable, len(table)),
	}
	for from, successors := range table {
		set := make(map[model.WorkflowState]struct{}, len(successors))
		for _, to := range successors {
			set[to] = struct{}{}
		}
		p.edges[from] = set
		p.order[from] = append([]model.WorkflowState(nil), successors...)
	}
	return p
}

// Allowed returns the successors of from in table order.
func (p *Policy) Allowed(from model.WorkflowState) []model.WorkflowState {
	return append([]model.WorkflowState(nil), p.order[from]...)
}

// Validate returns nil when the transition may proceed.
func (p *Policy) Validate(c Check) error {
	if _, ok := p.edges[c.From][c.To]; !ok {
		reason := "not an allowed successor"
		if len(p.edges[c.From]) == 0 {
			reason = "current state has no successors"
		}
		return refuse(ErrInvalidTransition, c, reason)
	}

	role, _ := model.ParseRole(c.Role)
	if !roleMayEnter(role, c.To) {
		return refuse(ErrForbidden, c, fmt.Sprintf("role %q may not move a document to %s", role, c.To))
	}

	if verifies(c.To) && c.Actor == c.Author {
		return refuse(ErrForbidden, c, "authors may not verify their own documents")
	}

	return nil
}

func refuse(kind error, c Check, reason string) error {
	return &PolicyError{Kind: kind, From: c.From, To: c.To, Reason: reason}
}

func roleMayEnter(role model.Role, to model.WorkflowState) bool {
	switch to {
	case model.StateSubmitted:
		return role == model.RoleSubmitter
	case model.StateUnderReview:
		return role == model.RoleReviewer || role == model.RoleApprover
	case model.StateApproved, model.StateRejected:
		return role == model.RoleApprover
	default:
		return false
	}
}

// verifies reports whether entering the state is a verification step.
func verifies(to model.WorkflowState) bool {
	return to == model.StateUnderReview || to == model.StateApproved || to == model.StateRejected
}
