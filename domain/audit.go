package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// AuditAction classifies the mutation an AuditLog entry records.
type AuditAction string

const (
	AuditCreate   AuditAction = "CREATE"
	AuditUpdate   AuditAction = "UPDATE"
	AuditDelete   AuditAction = "DELETE"
	AuditReassign AuditAction = "REASSIGN"
)

// AuditLog is an append-only record of a mutation to a resource.
// Written in the same unit of work as the mutation it describes, never
// as an afterthought.
type AuditLog struct {
	ID           id.ID       `json:"id"`
	LedgerID     id.ID       `json:"ledger_id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   id.ID       `json:"resource_id"`
	ActorID      id.ID       `json:"actor_id"`
	OldValue     string      `json:"old_value,omitempty"` // text rendering of the prior value
	NewValue     string      `json:"new_value,omitempty"` // text rendering of the new value
	CreatedAt    time.Time   `json:"created_at"`
}
