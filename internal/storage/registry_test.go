package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/config"
)

func TestDefault_Drivers(t *testing.T) {
	var names []string
	for _, d := range Default().List() {
		names = append(names, d.Name())
		assert.NotEmpty(t, d.Description())
	}
	assert.Equal(t, []string{"memory", "postgres", "sqlite"}, names)
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(memoryDriver{}))
	require.Error(t, r.Register(memoryDriver{}))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	r := Default()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "memory", cfg: config.Config{Store: "memory"}},
		{name: "sqlite", cfg: config.Config{Store: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "db.sqlite")}},
		{name: "sqlite without path", cfg: config.Config{Store: "sqlite"}, wantErr: true},
		{name: "unknown driver", cfg: config.Config{Store: "mongo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := r.Open(ctx, tt.cfg, slog.Default())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })

			owner, err := s.CreateOwner(ctx, "open@example.com")
			require.NoError(t, err)
			_, err = s.CreateRule(ctx, api.CategoryRule{OwnerID: owner.ID, Pattern: "p", Category: "c"})
			require.NoError(t, err)
		})
	}
}
