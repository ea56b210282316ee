package root

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironquest/database"
	"ironquest/models"
	"ironquest/offline"
	"ironquest/progression"
)

func writeCatalog(t *testing.T, catalog []models.Achievement) string {
	t.Helper()
	data, err := json.Marshal(catalog)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCatalogLint_DefaultCatalogIsValid(t *testing.T) {
	path := writeCatalog(t, database.DefaultCatalog())

	out, err := run(t, newCatalogCmd(), "lint", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+": OK")
	assert.Contains(t, out, "WORKOUT=")
}

func TestCatalogLint_ReportsProblems(t *testing.T) {
	bad := writeCatalog(t, []models.Achievement{
		{Name: "Lift", GoalType: "SWIMMING", XPReward: 10},
		{Name: "lift", GoalType: models.GoalWorkout, XPReward: 0},
	})

	out, err := run(t, newCatalogCmd(), "lint", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1")
	assert.Contains(t, out, "unknown goal type")
	assert.Contains(t, out, "duplicate name")
	assert.Contains(t, out, "xp_reward must be positive")
	assert.NotContains(t, out, ": OK")
}

func TestCatalogLint_RequiresFile(t *testing.T) {
	_, err := run(t, newCatalogCmd(), "lint")
	assert.Error(t, err)
}

func TestSeedCmd_Structure(t *testing.T) {
	cmd := newSeedCmd()
	assert.Equal(t, "seed", cmd.Use)
	flag := cmd.Flags().Lookup("file")
	require.NotNil(t, flag)
	assert.Equal(t, "f", flag.Shorthand)
	assert.Equal(t, "", flag.DefValue)
	assert.Error(t, cobra.NoArgs(cmd, []string{"extra"}))
}

func TestOfflinePendingAndAck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	sess, err := offline.Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sess.Seed(ctx, offline.Snapshot{
		User: models.User{ID: 7, Username: "dana", Level: 1},
		Catalog: []models.Achievement{
			{ID: 1, Name: "First Workout", GoalType: models.GoalWorkout, GoalAmount: 1, XPReward: 50},
		},
		Entries: []models.UserAchievement{{AchievementID: 1}},
	}))
	_, err = sess.ApplyEvent(ctx, 7, []models.GoalType{models.GoalWorkout}, progression.Event{})
	require.NoError(t, err)
	pending, err := sess.PendingEvents(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, sess.Close())

	out, err := run(t, newOfflineCmd(), "pending", "--db", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	var got offline.JournalEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, pending[0].ID, got.ID)
	assert.Equal(t, uint(7), got.UserID)
	assert.Equal(t, 50, got.XPAwarded)

	out, err = run(t, newOfflineCmd(), "ack", "--db", path, got.ID, "missing-id")
	require.NoError(t, err)
	assert.Contains(t, out, "marked 1 of 2")

	out, err = run(t, newOfflineCmd(), "pending", "--db", path)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}
