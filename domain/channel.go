package domain

import (
	"time"

	"github.com/pennywise/ledger/id"
)

// ChannelType is the external messaging surface a ChannelBinding links
// to a user's ledger.
type ChannelType string

const (
	ChannelTelegram ChannelType = "TELEGRAM"
	ChannelLine     ChannelType = "LINE"
	ChannelSlack    ChannelType = "SLACK"
)

// ChannelBinding links an external chat identity to a ledger so a bot
// adapter (outside this module's scope) can post transactions on the
// user's behalf after the channel-binding OTP handshake succeeds.
type ChannelBinding struct {
	ID              id.ID       `json:"id"`
	UserID          id.ID       `json:"user_id"`
	ChannelType     ChannelType `json:"channel_type"`
	ExternalUserID  string      `json:"external_user_id"`
	DefaultLedgerID id.ID       `json:"default_ledger_id"`
	IsActive        bool        `json:"is_active"`
	UnboundAt       *time.Time  `json:"unbound_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

const (
	OTPCodeLength     = 6
	OTPCodeTTLSeconds = 300
)
