package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zomatoSMS = "Rs. 1,234 debited to A/c XXXX on 05-07-2024 at 10:15 AM for Zomato Order. Avl Bal Rs.500"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "spendwise dev\n", out)
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	out, err := execute(t, "token", "--owner", "7")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)

	t.Setenv("JWT_SECRET", "")
	_, err = execute(t, "token", "--owner", "7")
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	out, err := execute(t, "parse", zomatoSMS)
	require.NoError(t, err)
	assert.Contains(t, out, "-1,234.00 INR")
	assert.Contains(t, out, "Food & Dining")
	assert.Contains(t, out, "2024-07-05")

	_, err = execute(t, "parse", "hello")
	require.Error(t, err)
}

func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SPENDWISE_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "spendwise.db"))
	t.Setenv("LOG_LEVEL", "ERROR")

	out, err := execute(t, "owners", "add", "me@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Owner 1 created")

	out, err = execute(t, "rules", "add", "--owner", "1", "zomato", "Treats")
	require.NoError(t, err)
	assert.Contains(t, out, "Treats")

	out, err = execute(t, "rules", "list", "--owner", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "zomato")

	msgs := filepath.Join(dir, "sms.txt")
	require.NoError(t, os.WriteFile(msgs, []byte(zomatoSMS+"\nnot a bank message\n"), 0o600))

	out, err = execute(t, "import", msgs, "--owner", "1", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "1 saved")
	assert.Contains(t, out, "1 skipped")

	out, err = execute(t, "stats", "monthly", "--owner", "1", "--year", "2024", "--month", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Treats")

	out, err = execute(t, "export", "--owner", "1", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Treats")

	_, err = execute(t, "rules", "rm", "--owner", "1", "1")
	require.NoError(t, err)

	_, err = execute(t, "export", "--owner", "1", "--format", "xml")
	require.Error(t, err)
}
