package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
// Categories drive publisher semantics: compliance events are fail-closed,
// security and operations events are best effort.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance for the registry:
	// ownership records and their changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers access to decrypted values, rejected proofs and
	// rejected sign-ins.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine wallet activity.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	// Registry events
	EventPropertyRegistered  AuditEvent = "property_registered"
	EventPropertyTransferred AuditEvent = "property_transferred"

	// Wallet events
	EventWalletConnected    AuditEvent = "wallet_connected"
	EventWalletDisconnected AuditEvent = "wallet_disconnected"
	EventSignInRejected     AuditEvent = "sign_in_rejected"

	// Encrypted value events
	EventDecryptRequested AuditEvent = "decrypt_requested"
	EventDecryptDenied    AuditEvent = "decrypt_denied"
	EventProofRejected    AuditEvent = "proof_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPropertyRegistered:  CategoryCompliance,
	EventPropertyTransferred: CategoryCompliance,

	EventDecryptRequested: CategorySecurity,
	EventDecryptDenied:    CategorySecurity,
	EventProofRejected:    CategorySecurity,
	EventSignInRejected:   CategorySecurity,

	EventWalletConnected:    CategoryOperations,
	EventWalletDisconnected: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. It never carries
// plaintext values or key material.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    AuditEvent    `json:"action"`
	// Wallet is the acting wallet address.
	Wallet string `json:"wallet,omitempty"`
	// Subject is the property id, session id or rejection reason the action
	// concerns.
	Subject string `json:"subject,omitempty"`
	// Counterparty is the receiving wallet on transfers.
	Counterparty string `json:"counterparty,omitempty"`
	Decision     string `json:"decision,omitempty"`
	Reason       string `json:"reason,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ClientIP     string `json:"client_ip,omitempty"`
}

// Prepare fills the ID, category and timestamp when unset.
func (e Event) Prepare(now time.Time) Event {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Category = e.Action.Category()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher is what domain services emit to.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
