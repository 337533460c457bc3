package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendwise/internal/server"
	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/config"
	"github.com/ArionMiles/spendwise/pkg/logging"
)

func memoryConfig() config.Config {
	cfg := config.Defaults()
	cfg.Store = "memory"
	cfg.JWTSecret = "secret"
	return cfg
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	owner, err := a.Store.CreateOwner(ctx, "a@example.com")
	require.NoError(t, err)

	txn, err := a.Classifier.Classify(ctx, owner.ID, api.TransactionRequest{
		Origin:  api.OriginSMS,
		RawText: "Rs. 450 debited to A/c XXXX on 05-07-2024 at 10:15 AM for Swiggy Order. Avl Bal Rs.500",
	})
	require.NoError(t, err)
	assert.Equal(t, "Food & Dining", txn.Category)

	stats, err := a.Dashboard.Monthly(ctx, owner.ID, 2024, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTransactions)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown store", func(c *config.Config) { c.Store = "cassandra" }},
		{"bad timezone", func(c *config.Config) { c.SMSTimezone = "Nowhere/Land" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)
			_, err := New(context.Background(), cfg, nil, logging.Discard())
			require.Error(t, err)
		})
	}
}

func TestServer_AuthenticatedRequest(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	owner, err := a.Store.CreateOwner(ctx, "a@example.com")
	require.NoError(t, err)
	tok, err := server.IssueToken([]byte("secret"), owner.ID, time.Hour, time.Now())
	require.NoError(t, err)

	srv, err := a.Server()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/rules", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_RequiresSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.JWTSecret = ""
	a, err := New(context.Background(), cfg, nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Error(t, a.Serve(context.Background()))
}
