// Package notify decides who hears about an expense event and how the message reads.
package notify

import (
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

// Kind names a notification template
type Kind string

const (
	KindSubmitted           Kind = "expense_submitted"
	KindManagerApproved     Kind = "manager_approved"
	KindManagerRejected     Kind = "manager_rejected"
	KindFinanceApproved     Kind = "finance_approved"
	KindFinanceRejected     Kind = "finance_rejected"
	KindPaymentProcessed    Kind = "payment_processed"
	KindPaymentNotProcessed Kind = "payment_not_processed"
	KindComment             Kind = "comment_added"
)

// KindForAction maps a workflow action to its notification template
func KindForAction(a workflow.Action) (Kind, bool) {
	switch a {
	case workflow.ActionSubmit, workflow.ActionResubmit:
		return KindSubmitted, true
	case workflow.ActionManagerApprove:
		return KindManagerApproved, true
	case workflow.ActionManagerReject:
		return KindManagerRejected, true
	case workflow.ActionFinanceApprove:
		return KindFinanceApproved, true
	case workflow.ActionFinanceReject:
		return KindFinanceRejected, true
	case workflow.ActionMarkPaid:
		return KindPaymentProcessed, true
	case workflow.ActionMarkNotPaid:
		return KindPaymentNotProcessed, true
	}
	return "", false
}

// Party is a person involved in an expense
type Party struct {
	UserID string
	Email  string
	Name   string
}

// Parties are the people attached to the expense an event is about
type Parties struct {
	Creator  Party
	Approver Party
}

// Trigger describes what happened and who did it
type Trigger struct {
	Kind      Kind
	ActorID   string
	ActorRole entity.Role
}

// Recipient is a resolved, deliverable address
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// SelectRecipients applies the dispatch decision table. Parties without an email
// are skipped and the same address is never returned twice.
func SelectRecipients(t Trigger, p Parties) []Recipient {
	var targets []Party

	switch t.Kind {
	case KindSubmitted:
		if p.Approver.UserID != "" || p.Approver.Email != "" {
			targets = append(targets, p.Approver)
		}
	case KindManagerApproved, KindManagerRejected,
		KindFinanceApproved, KindFinanceRejected,
		KindPaymentProcessed, KindPaymentNotProcessed:
		targets = append(targets, p.Creator)
	case KindComment:
		targets = commentTargets(t, p)
	}

	return dedupe(targets)
}

func commentTargets(t Trigger, p Parties) []Party {
	switch {
	case t.ActorID != "" && t.ActorID == p.Creator.UserID:
		return []Party{p.Approver}
	case t.ActorID != "" && t.ActorID == p.Approver.UserID:
		return []Party{p.Creator}
	default:
		// finance commenters and anyone whose relation is unresolved reach both sides
		return []Party{p.Approver, p.Creator}
	}
}

func dedupe(parties []Party) []Recipient {
	seen := make(map[string]bool, len(parties))
	out := make([]Recipient, 0, len(parties))
	for _, party := range parties {
		email := entity.NormalizeEmail(party.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, Recipient{UserID: party.UserID, Email: party.Email, Name: party.Name})
	}
	return out
}
