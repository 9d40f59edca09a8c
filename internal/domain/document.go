// Package domain holds the procurement document model shared by the
// approval workflow, the rendering pipeline, and the persistence layer.
package domain

import "time"

// DocKind discriminates the two document kinds that share the approval
// lifecycle. Offers and purchase orders are structurally identical for
// workflow purposes.
type DocKind string

const (
	KindOffer         DocKind = "OFFER"
	KindPurchaseOrder DocKind = "PURCHASE_ORDER"
)

// Label returns the human-readable heading used on rendered documents.
func (k DocKind) Label() string {
	switch k {
	case KindOffer:
		return "Budgetary Offer"
	case KindPurchaseOrder:
		return "Purchase Order"
	default:
		return string(k)
	}
}

// DocStatus is the approval lifecycle status of a document.
type DocStatus string

const (
	StatusDraft           DocStatus = "DRAFT"
	StatusPendingApproval DocStatus = "PENDING_APPROVAL"
	StatusApproved        DocStatus = "APPROVED"
	StatusRejected        DocStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is defined from s.
func (s DocStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the state machine defines an edge from s
// to next. The only edges are DRAFT→PENDING_APPROVAL, DRAFT→APPROVED
// (privileged submit) and PENDING_APPROVAL→{APPROVED, REJECTED}.
func (s DocStatus) CanTransitionTo(next DocStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusPendingApproval || next == StatusApproved
	case StatusPendingApproval:
		return next == StatusApproved || next == StatusRejected
	default:
		return false
	}
}

// ActionType identifies the kind of transition an ApprovalAction records.
type ActionType string

const (
	ActionSubmit       ActionType = "SUBMIT"
	ActionApprove      ActionType = "APPROVE"
	ActionReject       ActionType = "REJECT"
	ActionAutoApproved ActionType = "AUTO_APPROVED"
)

// ApprovalAction is one immutable audit record. The history a document
// carries is append-only: actions are never edited, reordered or removed.
type ApprovalAction struct {
	Type       ActionType `json:"type"`
	ActorID    string     `json:"actorId"`
	Timestamp  time.Time  `json:"timestamp"`
	Comments   string     `json:"comments,omitempty"`
	PrevStatus DocStatus  `json:"prevStatus"`
	NewStatus  DocStatus  `json:"newStatus"`
}

// LineItem is one priced row of an offer or purchase order. Monetary
// amounts are stored in paise so rendered formatting is deterministic.
type LineItem struct {
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	UnitPricePaise int64   `json:"unitPricePaise"`
	AmountPaise    int64   `json:"amountPaise"`
}

// Document is an approvable procurement document. One struct serves both
// kinds; Kind discriminates, everything else is uniform.
type Document struct {
	ID              string
	Kind            DocKind
	Number          string
	Title           string
	CreatorID       string
	ApproverID      *string
	Status          DocStatus
	History         []ApprovalAction
	LineItems       []LineItem
	TotalPaise      int64
	Comments        string
	RejectionReason string
	DocumentURL     string
	DocumentHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Approver resolves the authoritative approver for permission checks.
// When ApproverID is unset the first actor recorded in the history is
// treated as the approver.
func (d *Document) Approver() string {
	if d.ApproverID != nil && *d.ApproverID != "" {
		return *d.ApproverID
	}
	if len(d.History) > 0 {
		return d.History[0].ActorID
	}
	return ""
}

// AppendAction returns a new history slice with a ready-made audit record
// for the given transition appended. The receiver's history is not touched.
func (d *Document) AppendAction(action ActionType, actorID, comments string, next DocStatus, at time.Time) []ApprovalAction {
	history := make([]ApprovalAction, len(d.History), len(d.History)+1)
	copy(history, d.History)
	return append(history, ApprovalAction{
		Type:       action,
		ActorID:    actorID,
		Timestamp:  at,
		Comments:   comments,
		PrevStatus: d.Status,
		NewStatus:  next,
	})
}
