package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/categorizer"
	"github.com/ArionMiles/spendwise/pkg/dashboard"
	"github.com/ArionMiles/spendwise/pkg/engine"
	"github.com/ArionMiles/spendwise/pkg/importer"
	"github.com/ArionMiles/spendwise/pkg/logging"
	"github.com/ArionMiles/spendwise/pkg/rules"
	"github.com/ArionMiles/spendwise/pkg/smsparser"
	"github.com/ArionMiles/spendwise/pkg/store/memory"
)

const (
	zomatoSMS = "Rs. 1,234 debited to A/c XXXX on 05-07-2024 at 10:15 AM for Zomato Order. Avl Bal Rs.500"
	salarySMS = "Rs. 50,000 credited to A/c XXXX on 01-07-2024 at 9:00 AM for Salary July"
)

var (
	secret   = []byte("test-secret")
	fixedNow = time.Date(2024, 7, 20, 12, 0, 0, 0, time.UTC)
)

type harness struct {
	srv   *Server
	store *memory.Store
	owner int64
	token string
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	logger := logging.Discard()
	store := memory.New()
	owner, err := store.CreateOwner(context.Background(), "owner@example.com")
	require.NoError(t, err)

	resolver := categorizer.NewResolver(store, nil, logger)
	cls := engine.NewClassifier(store, smsparser.New(logger), resolver, store, logger)

	cfg.JWTSecret = secret
	cfg.Now = func() time.Time { return fixedNow }
	srv, err := New(Deps{
		Classifier:   cls,
		Batch:        engine.NewBatchProcessor(cls, logger),
		Rules:        rules.New(store, logger),
		Dashboard:    dashboard.New(store, time.UTC),
		Transactions: store,
		Importer:     importer.New(logger, importer.WithClock(func() time.Time { return fixedNow })),
	}, cfg, logger)
	require.NoError(t, err)

	return &harness{srv: srv, store: store, owner: owner.ID, token: mustToken(t, owner.ID)}
}

func mustToken(t *testing.T, ownerID int64) string {
	t.Helper()
	tok, err := IssueToken(secret, ownerID, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)
	return h.send(t, req)
}

func (h *harness) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := h.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Deps{}, Config{}, nil)
	require.ErrorIs(t, err, api.ErrMissingField)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, Config{})
	resp, body := h.send(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuth(t *testing.T) {
	h := newHarness(t, Config{})

	wrongSecret, err := IssueToken([]byte("other"), h.owner, time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := IssueToken(secret, h.owner, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	noOwner, err := IssueToken(secret, 0, time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + wrongSecret},
		{"expired", "Bearer " + expired},
		{"no owner", "Bearer " + noOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, body := h.send(t, req)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, string(body), `"error"`)
		})
	}
}

func TestCreateTransaction(t *testing.T) {
	h := newHarness(t, Config{})

	tests := []struct {
		name   string
		body   any
		status int
		check  func(t *testing.T, txn api.Transaction)
	}{
		{
			name:   "sms",
			body:   map[string]any{"origin": "SMS", "raw_text": zomatoSMS},
			status: http.StatusCreated,
			check: func(t *testing.T, txn api.Transaction) {
				assert.Equal(t, api.OriginSMS, txn.Origin)
				assert.Equal(t, "-1234", txn.Amount.String())
				assert.Equal(t, "Food & Dining", txn.Category)
				assert.Equal(t, h.owner, txn.OwnerID)
			},
		},
		{
			name: "manual with local time",
			body: map[string]any{
				"origin":           "MANUAL",
				"amount":           "-250",
				"merchant":         "Uber",
				"category":         "Groceries",
				"transaction_time": "2024-07-03T08:30:00",
			},
			status: http.StatusCreated,
			check: func(t *testing.T, txn api.Transaction) {
				assert.Equal(t, "Travel & Transportation", txn.Category)
				assert.True(t, txn.TransactionTime.Equal(time.Date(2024, 7, 3, 8, 30, 0, 0, time.UTC)))
			},
		},
		{name: "unparseable sms", body: map[string]any{"origin": "SMS", "raw_text": "hello there"}, status: http.StatusBadRequest},
		{name: "unknown origin", body: map[string]any{"origin": "FAX"}, status: http.StatusBadRequest},
		{name: "bad time", body: map[string]any{"origin": "MANUAL", "transaction_time": "yesterday"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, http.MethodPost, "/api/transactions", tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			if tt.check != nil {
				tt.check(t, decode[api.Transaction](t, body))
			}
		})
	}
}

func TestCreateTransaction_InvalidJSON(t *testing.T) {
	h := newHarness(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, body := h.send(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid json"}`, string(body))
}

func TestCreateTransaction_UnknownOwner(t *testing.T) {
	h := newHarness(t, Config{})
	h.token = mustToken(t, h.owner+99)

	resp, _ := h.do(t, http.MethodPost, "/api/transactions", map[string]any{"origin": "MANUAL"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListTransactions(t *testing.T) {
	h := newHarness(t, Config{})

	resp, body := h.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	for _, sms := range []string{zomatoSMS, salarySMS} {
		resp, _ := h.do(t, http.MethodPost, "/api/transactions", map[string]any{"origin": "SMS", "raw_text": sms})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body = h.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]api.Transaction](t, body), 2)

	resp, body = h.do(t, http.MethodGet, "/api/transactions?from=2024-07-02&to=2024-08-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	txns := decode[[]api.Transaction](t, body)
	require.Len(t, txns, 1)
	assert.Equal(t, "Zomato Order", txns[0].Merchant)

	resp, _ = h.do(t, http.MethodGet, "/api/transactions?from=july", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessBatch(t *testing.T) {
	h := newHarness(t, Config{})

	resp, body := h.do(t, http.MethodPost, "/api/transactions/sms/batch", map[string]any{
		"messages": []map[string]string{{"text": zomatoSMS}, {"text": "not a bank alert"}, {"text": salarySMS}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	res := decode[api.BatchResult](t, body)
	assert.Equal(t, 3, res.TotalProcessed)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Results, 3)
	assert.False(t, res.Results[1].Success)

	resp, _ = h.do(t, http.MethodPost, "/api/transactions/sms/batch", map[string]any{"messages": []any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	tooMany := make([]map[string]string, api.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = map[string]string{"text": zomatoSMS}
	}
	resp, _ = h.do(t, http.MethodPost, "/api/transactions/sms/batch", map[string]any{"messages": tooMany})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSampleData(t *testing.T) {
	h := newHarness(t, Config{})

	resp, body := h.do(t, http.MethodPost, "/api/transactions/sample-data", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[struct {
		Message string `json:"message"`
		Created int    `json:"created"`
	}](t, body)
	assert.Equal(t, "Sample data created successfully!", out.Message)
	assert.Positive(t, out.Created)

	txns, err := h.store.ListTransactions(context.Background(), h.owner, api.Period{})
	require.NoError(t, err)
	assert.Len(t, txns, out.Created)
}

func upload(t *testing.T, h *harness, format, content string) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if content != "" {
		fw, err := mw.CreateFormFile("file", "messages.txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sms/upload/"+format, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+h.token)
	return h.send(t, req)
}

func TestUploadMessages(t *testing.T) {
	h := newHarness(t, Config{})

	resp, body := upload(t, h, "text", zomatoSMS+"\n\n"+salarySMS+"\n")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decode[api.BatchResult](t, body)
	assert.Equal(t, 2, res.SuccessCount)

	resp, body = upload(t, h, "csv", "timestamp,message_text\n2024-07-05 10:15,\""+zomatoSMS+"\"\n")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 1, decode[api.BatchResult](t, body).SuccessCount)

	resp, _ = upload(t, h, "text", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing file")

	resp, _ = upload(t, h, "text", "# only a comment\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "nothing to import")

	resp, _ = upload(t, h, "pdf", "x")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRules(t *testing.T) {
	h := newHarness(t, Config{})

	resp, body := h.do(t, http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, body = h.do(t, http.MethodPost, "/api/rules", map[string]string{"pattern": "Zomato", "category": "Treats"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	rule := decode[api.CategoryRule](t, body)
	assert.Equal(t, "zomato", rule.Pattern)

	resp, _ = h.do(t, http.MethodPost, "/api/rules", map[string]string{"pattern": "ZOMATO", "category": "Other"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/rules", map[string]string{"pattern": "", "category": "Other"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The owner rule now wins over the built-in table.
	resp, body = h.do(t, http.MethodPost, "/api/transactions", map[string]any{"origin": "SMS", "raw_text": zomatoSMS})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Treats", decode[api.Transaction](t, body).Category)

	other, err := h.store.CreateOwner(context.Background(), "other@example.com")
	require.NoError(t, err)
	intruder := *h
	intruder.token = mustToken(t, other.ID)
	resp, _ = intruder.do(t, http.MethodDelete, "/api/rules/"+strconv.FormatInt(rule.ID, 10), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/rules/"+strconv.FormatInt(rule.ID, 10), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/rules/"+strconv.FormatInt(rule.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/rules/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStats(t *testing.T) {
	h := newHarness(t, Config{})
	for _, sms := range []string{zomatoSMS, salarySMS} {
		resp, _ := h.do(t, http.MethodPost, "/api/transactions", map[string]any{"origin": "SMS", "raw_text": sms})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	tests := []struct {
		name   string
		path   string
		status int
		count  int
	}{
		{"monthly explicit", "/api/dashboard/stats/monthly?year=2024&month=7", http.StatusOK, 2},
		{"monthly defaults to current month", "/api/dashboard/stats/monthly", http.StatusOK, 2},
		{"monthly other month", "/api/dashboard/stats/monthly?year=2024&month=6", http.StatusOK, 0},
		{"yearly", "/api/dashboard/stats/yearly?year=2024", http.StatusOK, 2},
		{"yearly default", "/api/dashboard/stats/yearly", http.StatusOK, 2},
		{"bad month", "/api/dashboard/stats/monthly?year=2024&month=13", http.StatusBadRequest, 0},
		{"non-numeric year", "/api/dashboard/stats/yearly?year=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			if tt.status != http.StatusOK {
				return
			}
			st := decode[dashboard.Stats](t, body)
			assert.Equal(t, tt.count, st.TotalTransactions)
		})
	}
}

func TestWriteLimit(t *testing.T) {
	h := newHarness(t, Config{WriteLimit: 2})

	for range 2 {
		resp, _ := h.do(t, http.MethodPost, "/api/rules", map[string]string{"pattern": "", "category": ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	resp, _ := h.do(t, http.MethodPost, "/api/rules", map[string]string{"pattern": "", "category": ""})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/rules", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads are not limited")
}
