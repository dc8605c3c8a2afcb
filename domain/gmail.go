package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// GmailScanJob drives the scheduler's periodic scan for new credit-card
// statement emails. The scan itself (Gmail API calls, PDF text
// extraction) is outside this module's scope; GmailScanJob only
// records the cadence and last outcome so the scheduler can re-arm a
// cron entry across restarts.
type GmailScanJob struct {
	ID                id.ID      `json:"id"`
	LedgerID          id.ID      `json:"ledger_id"`
	ConnectionStatus  string     `json:"connection_status"` // CONNECTED, DISCONNECTED, ERROR
	Frequency         Frequency  `json:"frequency"`         // DAILY or WEEKLY
	Hour              int        `json:"hour"`
	DayOfWeek         *int       `json:"day_of_week,omitempty"`
	LastScanAt        *time.Time `json:"last_scan_at,omitempty"`
	LastScanOutcome   string     `json:"last_scan_outcome,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// EmailAuthorization stores the opaque OAuth credential and, if set,
// the PDF-open password for a user's mail provider connection. The
// core never interprets the refresh token's contents; it only
// encrypts and stores it via cryptoutil.
type EmailAuthorization struct {
	ID                       id.ID     `json:"id"`
	UserID                   id.ID     `json:"user_id"`
	LedgerID                 id.ID     `json:"ledger_id"`
	Provider                 string    `json:"provider"`
	EncryptedRefreshToken    []byte    `json:"-"`
	EncryptedPDFPassword     []byte    `json:"-"`
	CreatedAt                time.Time `json:"created_at"`
}
