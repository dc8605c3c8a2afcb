package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennywise/ledger/account"
	"github.com/pennywise/ledger/api"
	"github.com/pennywise/ledger/auth"
	"github.com/pennywise/ledger/cryptoutil"
	"github.com/pennywise/ledger/domain"
	"github.com/pennywise/ledger/id"
	"github.com/pennywise/ledger/importpipeline"
	"github.com/pennywise/ledger/ledger"
	"github.com/pennywise/ledger/money"
	"github.com/pennywise/ledger/report"
	"github.com/pennywise/ledger/scheduler"
	"github.com/pennywise/ledger/store/memory"
	"github.com/pennywise/ledger/store/scratch"
	"github.com/pennywise/ledger/transaction"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })

	scratchStore, err := scratch.Open(filepath.Join(t.TempDir(), "scratch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = scratchStore.Close() })

	envelope, err := cryptoutil.NewEnvelope(make([]byte, 32))
	require.NoError(t, err)

	txEngine := transaction.New(s)
	recurring := scheduler.NewRecurringEngine(s, txEngine)
	sched := scheduler.NewEngine(s, recurring, id.New(), nil, zerolog.Nop())
	h := api.NewHandler(
		s,
		ledger.New(s),
		account.New(s),
		txEngine,
		report.New(s),
		auth.NewTokenEngine(s),
		auth.NewChannelEngine(s),
		recurring,
		scheduler.NewInstallmentEngine(s, txEngine),
		importpipeline.New(s, scratchStore),
		auth.NewEmailAuthEngine(s, envelope),
		sched,
	)
	return httptest.NewServer(api.NewRouter(h))
}

// doJSON issues a request and decodes the JSON response body into a
// generic map, which is enough for these tests to pick out a handful of
// fields without needing a parallel set of response-decoding types.
func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded) // a 204 body is empty; that's fine
	return resp, decoded
}

// bootstrapUser walks the unauthenticated create-user/create-token
// handshake every other test needs before it can call an authenticated route.
func bootstrapUser(t *testing.T, srv *httptest.Server, email string) (userID, token string) {
	t.Helper()
	resp, user := doJSON(t, srv, http.MethodPost, "/api/users", "", api.CreateUserRequest{Email: email})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", user)
	userID = user["id"].(string)

	resp, tokenResp := doJSON(t, srv, http.MethodPost, "/api/auth/tokens", "", map[string]any{
		"user_id": userID,
		"name":    "test token",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", tokenResp)
	token = tokenResp["token"].(string)
	return userID, token
}

func TestCreateUserAndToken(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	userID, token := bootstrapUser(t, srv, "alice@example.com")
	assert.NotEmpty(t, userID)
	assert.NotEmpty(t, token)
}

func TestUnauthenticatedRouteRejected(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/ledgers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLedgerAccountTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	_, token := bootstrapUser(t, srv, "bob@example.com")

	resp, l := doJSON(t, srv, http.MethodPost, "/api/ledgers", token, api.CreateLedgerRequest{
		Name: "Personal", Currency: "USD",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", l)
	ledgerID := l["id"].(string)

	resp, expenseAcct := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/accounts", token, api.CreateAccountRequest{
		Name: "Groceries", Type: domain.AccountExpense,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", expenseAcct)
	expenseID := expenseAcct["id"].(string)

	var rawAccounts []domain.Account
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/ledgers/"+ledgerID+"/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	listResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&rawAccounts))

	var cashID string
	for _, a := range rawAccounts {
		if a.Name == domain.SystemAccountCash {
			cashID = a.ID.String()
		}
	}
	require.NotEmpty(t, cashID, "expected a system Cash account to exist on a new ledger")

	amount, err := money.Parse("42.50")
	require.NoError(t, err)

	fromID, err := id.Parse(cashID)
	require.NoError(t, err)
	toID, err := id.Parse(expenseID)
	require.NoError(t, err)

	resp, postedTx := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/transactions", token, api.PostTransactionRequest{
		Type:          domain.TxExpense,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		Date:          time.Now().UTC(),
		Description:   "Weekly shop",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", postedTx)

	resp, sheet := doJSON(t, srv, http.MethodGet, "/api/ledgers/"+ledgerID+"/reports/balance-sheet", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", sheet)
	assert.Equal(t, "-42.50", sheet["total_assets"])
}

func TestTagAndTemplateLifecycle(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	_, token := bootstrapUser(t, srv, "carol@example.com")

	resp, l := doJSON(t, srv, http.MethodPost, "/api/ledgers", token, api.CreateLedgerRequest{
		Name: "Personal", Currency: "USD",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", l)
	ledgerID := l["id"].(string)

	resp, tag := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/tags", token, api.CreateTagRequest{
		Name: "groceries",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", tag)

	resp, dup := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/tags", token, api.CreateTagRequest{
		Name: "groceries",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "%v", dup)

	resp, expenseAcct := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/accounts", token, api.CreateAccountRequest{
		Name: "Dining", Type: domain.AccountExpense,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", expenseAcct)
	expenseID := expenseAcct["id"].(string)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/ledgers/"+ledgerID+"/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	listResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	var rawAccounts []domain.Account
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&rawAccounts))
	var cashID string
	for _, a := range rawAccounts {
		if a.Name == domain.SystemAccountCash {
			cashID = a.ID.String()
		}
	}
	require.NotEmpty(t, cashID)

	amount, err := money.Parse("12.00")
	require.NoError(t, err)
	resp, tmpl := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/templates", token, api.CreateTransactionTemplateRequest{
		Name:          "Takeout",
		Type:          domain.TxExpense,
		FromAccountID: cashID,
		ToAccountID:   expenseID,
		Amount:        amount,
		Description:   "Takeout order",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", tmpl)
	templateID := tmpl["id"].(string)

	resp, applied := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/templates/"+templateID+"/apply", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", applied)
	assert.Equal(t, "12.00", applied["amount"])
}

func TestConnectEmailAuthRegistersScanJob(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	_, token := bootstrapUser(t, srv, "dana@example.com")

	resp, l := doJSON(t, srv, http.MethodPost, "/api/ledgers", token, api.CreateLedgerRequest{
		Name: "Personal", Currency: "USD",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", l)
	ledgerID := l["id"].(string)

	resp, connected := doJSON(t, srv, http.MethodPost, "/api/ledgers/"+ledgerID+"/email-auth", token, api.ConnectEmailAuthRequest{
		Provider:     "gmail",
		RefreshToken: "1//fake-refresh-token",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", connected)

	resp, status := doJSON(t, srv, http.MethodGet, "/api/ledgers/"+ledgerID+"/email-auth", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", status)
	assert.Equal(t, "CONNECTED", status["connection_status"])
}
