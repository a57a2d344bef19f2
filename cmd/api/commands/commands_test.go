package commands

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinereview/core/internal/adapters/repository"
	"github.com/cinereview/core/internal/infrastructure/config"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/infrastructure/server"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, NewVersionCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "CineReview "+Version)
}

func TestMigrateSQLite(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", config.BackendSQLite)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "reviews.db"))

	out, _, err := execute(t, NewMigrateCommand(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "No migrations applied")

	out, _, err = execute(t, NewMigrateCommand(), "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Migration up completed successfully")

	out, _, err = execute(t, NewMigrateCommand(), "up")
	require.NoError(t, err)
	assert.Contains(t, out, "No migrations to run")

	out, _, err = execute(t, NewMigrateCommand(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Current migration version: 1")
}

func TestMigrateRejectsFileBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", config.BackendFile)

	_, _, err := execute(t, NewMigrateCommand(), "up")
	require.Error(t, err)
}

func TestReviewsCommands(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Backend: config.BackendMemory},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
	}
	srv, err := server.New(cfg, repository.NewMemoryStore(nil), logger.NewNop(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	out, _, err := execute(t, NewReviewsCommand(), "list", "--base-url", ts.URL, "--movie", "tt001")
	require.NoError(t, err)
	assert.Contains(t, out, "No reviews yet")

	_, _, err = execute(t, NewReviewsCommand(), "add", "--base-url", ts.URL, "--movie", "tt001", "--name", "Alice", "--text", "Great film")
	require.NoError(t, err)

	_, _, err = execute(t, NewReviewsCommand(), "add", "--base-url", ts.URL, "--movie", "tt001", "--name", "Bob", "--text", "Even better")
	require.NoError(t, err)

	out, _, err = execute(t, NewReviewsCommand(), "list", "--base-url", ts.URL, "--movie", "tt001")
	require.NoError(t, err)
	bob := bytes.Index([]byte(out), []byte("Bob"))
	alice := bytes.Index([]byte(out), []byte("Alice"))
	require.GreaterOrEqual(t, bob, 0)
	require.GreaterOrEqual(t, alice, 0)
	assert.Less(t, bob, alice, "most recent review comes first")

	_, errOut, err := execute(t, NewReviewsCommand(), "add", "--base-url", ts.URL, "--movie", "tt001", "--name", "Alice")
	require.Error(t, err)
	assert.Contains(t, errOut, "Please fill in all review fields.")

	_, errOut, err = execute(t, NewReviewsCommand(), "list", "--base-url", ts.URL, "--movie", "bad/id")
	require.Error(t, err)
	assert.Contains(t, errOut, "Invalid movieId format.")
}
