package postgres

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/store/storetest"
)

func TestNew_ConnectionFailure(t *testing.T) {
	cfg := Config{
		Host:            "nonexistent-host",
		Port:            5432,
		Database:        "spendwise",
		User:            "spendwise",
		Password:        "password",
		ConnectAttempts: 1,
	}

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	require.Error(t, err, "expected error when connecting to nonexistent host")
}

// startPostgres runs a throwaway PostgreSQL container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("spendwise"),
		tcpostgres.WithUsername("spendwise"),
		tcpostgres.WithPassword("spendwise"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestStore(t *testing.T) {
	dsn := startPostgres(t)

	storetest.Run(t, func(t *testing.T) api.Store {
		ctx := context.Background()
		s, err := New(ctx, Config{DSN: dsn, ConnectDelay: 500 * time.Millisecond}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		_, err = s.pool.Exec(ctx, `TRUNCATE owners RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return s
	})
}
