/*
emailauth.go implements component I's provider-connection bookkeeping:
storing a mailbox's OAuth refresh token and optional PDF-open password
under AES-256-GCM envelope encryption (cryptoutil.Envelope) so the
core's own SQLite/bbolt state never holds either in the clear. The
Gmail API calls and PDF extraction this unlocks are outside this
module's scope (spec.md §1); EmailAuthEngine only manages the secret at
rest and hands the decrypted refresh token to a caller that does.
*/
package auth

import (
	"context"
	"time"

	"github.com/pennywise/ledger/apperr"
	"github.com/pennywise/ledger/cryptoutil"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/store"
)

// EmailAuthEngine implements connect (replacing any prior authorization
// in place) and decrypted
// read-back of a ledger's mail-provider authorization.
type EmailAuthEngine struct {
	store    store.Store
	envelope *cryptoutil.Envelope
}

func NewEmailAuthEngine(s store.Store, envelope *cryptoutil.Envelope) *EmailAuthEngine {
	return &EmailAuthEngine{store: s, envelope: envelope}
}

// Connect seals refreshToken (and pdfPassword, if set) and upserts the
// authorization record for (userID, ledgerID), replacing any prior one
// for the same ledger.
func (e *EmailAuthEngine) Connect(ctx context.Context, userID, ledgerID id.ID, provider, refreshToken, pdfPassword string) (domain.EmailAuthorization, error) {
	if refreshToken == "" {
		return domain.EmailAuthorization{}, apperr.Validation("refresh_token must not be empty")
	}
	sealedToken, err := e.envelope.Seal([]byte(refreshToken))
	if err != nil {
		return domain.EmailAuthorization{}, err
	}
	var sealedPassword []byte
	if pdfPassword != "" {
		sealedPassword, err = e.envelope.Seal([]byte(pdfPassword))
		if err != nil {
			return domain.EmailAuthorization{}, err
		}
	}

	a := domain.EmailAuthorization{
		ID:                    id.New(),
		UserID:                userID,
		LedgerID:              ledgerID,
		Provider:              provider,
		EncryptedRefreshToken: sealedToken,
		EncryptedPDFPassword:  sealedPassword,
		CreatedAt:             time.Now().UTC(),
	}
	if err := e.store.UpsertEmailAuthorization(ctx, a); err != nil {
		return domain.EmailAuthorization{}, err
	}

	job := domain.GmailScanJob{
		ID:               id.New(),
		LedgerID:         ledgerID,
		ConnectionStatus: "CONNECTED",
		Frequency:        domain.FreqDaily,
		Hour:             6,
		CreatedAt:        time.Now().UTC(),
	}
	if err := e.store.UpsertGmailScanJob(ctx, job); err != nil {
		return domain.EmailAuthorization{}, err
	}
	return a, nil
}

// DecryptedRefreshToken opens the stored refresh token for ledgerID.
// Callers that actually talk to a mail provider (outside this module's
// scope) use this to obtain the plaintext credential just before
// making the call; it is never logged or returned over HTTP.
func (e *EmailAuthEngine) DecryptedRefreshToken(ctx context.Context, ledgerID id.ID) (string, error) {
	a, err := e.store.GetEmailAuthorization(ctx, ledgerID)
	if err != nil {
		return "", err
	}
	plain, err := e.envelope.Open(a.EncryptedRefreshToken)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Status reports a ledger's Gmail connection status without exposing
// either encrypted secret.
func (e *EmailAuthEngine) Status(ctx context.Context, ledgerID id.ID) (domain.GmailScanJob, error) {
	return e.store.GetGmailScanJob(ctx, ledgerID)
}
