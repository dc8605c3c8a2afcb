package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/store"
)

// otpEntry is one outstanding code. It lives only in process memory: a
// restart invalidates every outstanding code, which is an accepted
// trade-off per spec.md §9 since codes expire in five minutes anyway.
type otpEntry struct {
	userID          id.ID
	defaultLedgerID *id.ID
	expiresAt       time.Time
	consumed        bool
}

// ChannelEngine implements the channel-binding OTP handshake: a user
// generates a code in the first-party app, then a chat adapter
// (Telegram, LINE, Slack — outside this module's scope) calls Verify on
// behalf of the anonymous chat identity that typed it in.
type ChannelEngine struct {
	store store.Store

	mu    sync.Mutex
	codes map[string]*otpEntry
}

func NewChannelEngine(s store.Store) *ChannelEngine {
	return &ChannelEngine{store: s, codes: make(map[string]*otpEntry)}
}

// GenerateCode mints a 6-digit decimal code valid for
// domain.OTPCodeTTLSeconds, held in this process's memory only.
func (e *ChannelEngine) GenerateCode(userID id.ID, defaultLedgerID *id.ID) (string, error) {
	code, err := randomDigits(domain.OTPCodeLength)
	if err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes[code] = &otpEntry{
		userID:          userID,
		defaultLedgerID: defaultLedgerID,
		expiresAt:       time.Now().UTC().Add(domain.OTPCodeTTLSeconds * time.Second),
	}
	return code, nil
}

// Verify consumes code on its first successful lookup and, if no
// active binding already exists for (channel, externalUserID), creates
// one. An expired, absent, or already-consumed code fails with
// apperr.ErrValidation; a pre-existing active binding on the same
// (channel, externalUserID) fails with apperr.ErrConflict.
func (e *ChannelEngine) Verify(ctx context.Context, code string, channel domain.ChannelType, externalUserID string) (domain.ChannelBinding, error) {
	entry, err := e.consumeCode(code)
	if err != nil {
		return domain.ChannelBinding{}, err
	}

	_, err = e.store.GetActiveChannelBinding(ctx, channel, externalUserID)
	if err == nil {
		return domain.ChannelBinding{}, apperr.Conflict("this %s identity is already bound to a user", channel)
	}
	if !apperr.IsNotFound(err) {
		return domain.ChannelBinding{}, err
	}

	var defaultLedgerID id.ID
	if entry.defaultLedgerID != nil {
		defaultLedgerID = *entry.defaultLedgerID
	}
	binding := domain.ChannelBinding{
		ID:              id.New(),
		UserID:          entry.userID,
		ChannelType:     channel,
		ExternalUserID:  externalUserID,
		DefaultLedgerID: defaultLedgerID,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.store.CreateChannelBinding(ctx, binding); err != nil {
		return domain.ChannelBinding{}, err
	}
	return binding, nil
}

func (e *ChannelEngine) consumeCode(code string) (*otpEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.codes[code]
	if !ok || entry.consumed {
		return nil, apperr.Validation("code is invalid or already used")
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(e.codes, code)
		return nil, apperr.Validation("code has expired")
	}
	entry.consumed = true
	delete(e.codes, code)
	return entry, nil
}

// Unbind soft-deletes a channel binding.
func (e *ChannelEngine) Unbind(ctx context.Context, bindingID id.ID) error {
	return e.store.UnbindChannel(ctx, bindingID, time.Now().UTC())
}

// List returns every channel binding a user has ever created, active or not.
func (e *ChannelEngine) List(ctx context.Context, userID id.ID) ([]domain.ChannelBinding, error) {
	return e.store.ListChannelBindings(ctx, userID)
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0') + byte(d.Int64())
	}
	return string(digits), nil
}
