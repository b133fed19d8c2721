package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFunding EventType = "funding"
	EventSpend   EventType = "spend"
)

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventConfirmed EventStatus = "confirmed"
)

// SpendMetadata is the typed payload attached to spend events.
type SpendMetadata struct {
	Tokens   int64  `json:"tokens"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Event is an append-only ledger entry against a vault. Amounts are signed
// micro-dollars: funding positive, spend negative. AgentID is nil for
// vault-level funding credits.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      EventType      `json:"type"`
	Amount    int64          `json:"amount"`
	Status    EventStatus    `json:"status"`
	TxHash    string         `json:"tx_hash,omitempty"`
	Metadata  *SpendMetadata `json:"metadata,omitempty"`
	VaultID   uuid.UUID      `json:"vault_id"`
	AgentID   *uuid.UUID     `json:"agent_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ActivityItem is an event joined with its agent and project names for feeds.
type ActivityItem struct {
	ID          uuid.UUID      `json:"id"`
	Type        EventType      `json:"type"`
	Amount      int64          `json:"amount"`
	Status      EventStatus    `json:"status"`
	TxHash      string         `json:"tx_hash,omitempty"`
	Metadata    *SpendMetadata `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	AgentName   string         `json:"agent_name,omitempty"`
	ProjectName string         `json:"project_name"`
}
