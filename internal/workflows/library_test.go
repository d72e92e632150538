package workflows

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

var quiet = logger.New(logger.LevelOff, nil)

var standup = []domain.Command{
	{Action: "open_app", Parameters: domain.Params{"app_name": "slack"}},
	{Action: "open_url", Parameters: domain.Params{"url": "https://meet.example.com/standup"}},
}

func TestSaveGetPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	ctx := context.Background()

	lib, err := Open(path, quiet)
	require.NoError(t, err)

	w, err := lib.Save(ctx, "  Daily  Standup ", "join the call", standup)
	require.NoError(t, err)
	assert.Equal(t, "daily standup", w.Name)
	assert.Equal(t, 1, w.Version)

	w, err = lib.Save(ctx, "daily standup", "join the call", standup)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Version)

	reopened, err := Open(path, quiet)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "DAILY STANDUP")
	require.NoError(t, err)
	if diff := cmp.Diff(standup, got.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, got.Version)

	cmd := got.Command()
	assert.True(t, cmd.IsWorkflow())
	assert.Equal(t, "join the call", cmd.Description)
}

func TestBuiltinsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	ctx := context.Background()

	lib, err := Open(path, quiet)
	require.NoError(t, err)
	_, err = lib.Get(ctx, "morning routine")
	require.NoError(t, err)

	_, err = lib.Save(ctx, "mine", "", standup)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mine")
	assert.NotContains(t, string(data), "morning routine")
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	lib, err := Open("", quiet)
	require.NoError(t, err)

	_, err = lib.Save(ctx, "alpha", "", standup)
	require.NoError(t, err)

	var names []string
	for _, s := range lib.List(ctx) {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"alpha", "focus mode", "morning routine"}, names)

	require.NoError(t, lib.Delete(ctx, "alpha"))
	assert.ErrorIs(t, lib.Delete(ctx, "alpha"), domain.ErrNotFound)
	_, err = lib.Get(ctx, "alpha")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveValidation(t *testing.T) {
	lib, err := Open("", quiet)
	require.NoError(t, err)

	_, err = lib.Save(context.Background(), " ", "", standup)
	assert.ErrorIs(t, err, domain.ErrMissingParam)
	_, err = lib.Save(context.Background(), "empty", "", nil)
	assert.ErrorIs(t, err, domain.ErrMissingParam)
}

func TestOpenRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflows: [:"), 0o644))
	_, err := Open(path, quiet)
	assert.Error(t, err)
}
