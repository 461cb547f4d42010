package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func pending(userID, guildID string, appliedAt int64) *models.AuthApplication {
	return &models.AuthApplication{
		UserID:    userID,
		GuildID:   guildID,
		Answers:   []string{"a"},
		AppliedAt: appliedAt,
	}
}

func TestConfigUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cfg, err := s.GetConfig(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg = models.NewGuildConfig("g1")
	cfg.NotificationChannelID = models.StringPtr("c1")
	cfg.Questions = []questions.Question{{Text: "Edad"}, {Text: "Twitter", Optional: true}}
	require.NoError(t, s.UpsertConfig(ctx, cfg))

	got, err := s.GetConfig(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", *got.NotificationChannelID)
	assert.Nil(t, got.PanelChannelID)
	assert.Equal(t, models.DefaultPanelMessage, got.PanelMessage)
	assert.Equal(t, cfg.Questions, got.Questions)
	assert.False(t, got.DMNotificationEnabled)

	got.DMNotificationEnabled = true
	got.PanelMessage = "Hola"
	require.NoError(t, s.UpsertConfig(ctx, got))

	again, err := s.GetConfig(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, again.DMNotificationEnabled)
	assert.Equal(t, "Hola", again.PanelMessage)
	assert.Equal(t, "c1", *again.NotificationChannelID)
}

func TestInsertPendingRejectsSecondPending(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.InsertPending(ctx, pending("u1", "g1", 100))
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = s.InsertPending(ctx, pending("u1", "g1", 101))
	assert.ErrorIs(t, err, ErrDuplicatePending)
	assert.False(t, IsStoreError(err))

	app, err := s.GetPending(ctx, "u1", "g1")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, id, app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, []string{"a"}, app.Answers)

	// other guild is independent
	_, err = s.InsertPending(ctx, pending("u1", "g2", 100))
	assert.NoError(t, err)
}

func TestConcurrentInsertPendingKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.InsertPending(ctx, pending("u1", "g1", int64(i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDuplicatePending):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, duplicates)

	counts, err := s.CountByStatus(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(models.StatusPending))
}

func TestResolvePendingIsConditional(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.InsertPending(ctx, pending("u1", "g1", 100))
	require.NoError(t, err)

	res := models.Resolution{
		Status:      models.StatusApproved,
		ProcessedAt: models.Int64Ptr(200),
		ProcessorID: models.StringPtr("mod"),
	}
	ok, err := s.ResolvePending(ctx, id, res)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ResolvePending(ctx, id, models.Resolution{Status: models.StatusCancelled})
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := s.ListHistory(ctx, "u1", "g1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusApproved, history[0].Status)
	assert.Equal(t, int64(200), *history[0].ProcessedAt)
	assert.Equal(t, "mod", *history[0].ProcessorID)
	assert.Nil(t, history[0].Notes)

	pendingApp, err := s.GetPending(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Nil(t, pendingApp)
}

func TestRetentionKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 0; i < models.HistoryLimit+5; i++ {
		id, err := s.InsertPending(ctx, pending("u1", "g1", int64(1000+i)))
		require.NoError(t, err)
		ok, err := s.ResolvePending(ctx, id, models.Resolution{
			Status:      models.StatusRejected,
			ProcessedAt: models.Int64Ptr(int64(1000 + i)),
			ProcessorID: models.StringPtr("mod"),
			Notes:       models.StringPtr("no"),
		})
		require.NoError(t, err)
		require.True(t, ok)
	}

	history, err := s.ListHistory(ctx, "u1", "g1", 100)
	require.NoError(t, err)
	require.Len(t, history, models.HistoryLimit)
	assert.Equal(t, int64(1000+models.HistoryLimit+4), history[0].AppliedAt)
	assert.Equal(t, int64(1005), history[len(history)-1].AppliedAt)

	// the pending row itself is never trimmed
	_, err = s.InsertPending(ctx, pending("u1", "g1", 5000))
	require.NoError(t, err)
	history, err = s.ListHistory(ctx, "u1", "g1", 100)
	require.NoError(t, err)
	assert.Len(t, history, models.HistoryLimit)
	assert.Equal(t, models.StatusPending, history[0].Status)
}

func TestNotificationMessage(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.InsertPending(ctx, pending("u1", "g1", 100))
	require.NoError(t, err)
	require.NoError(t, s.SetNotificationMessage(ctx, id, "m1"))

	app, err := s.GetPending(ctx, "u1", "g1")
	require.NoError(t, err)
	require.NotNil(t, app.NotificationMessageID)
	assert.Equal(t, "m1", *app.NotificationMessageID)
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	entry, err := s.GetBlacklist(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, s.UpsertBlacklist(ctx, &models.BlacklistEntry{
		UserID: "u1", GuildID: "g1", AddedAt: 10, AddedBy: "mod",
	}))
	require.NoError(t, s.UpsertBlacklist(ctx, &models.BlacklistEntry{
		UserID: "u1", GuildID: "g1", Reason: models.StringPtr("spam"), AddedAt: 20, AddedBy: "mod2",
	}))
	require.NoError(t, s.UpsertBlacklist(ctx, &models.BlacklistEntry{
		UserID: "u2", GuildID: "g1", AddedAt: 5, AddedBy: "mod",
	}))

	entry, err = s.GetBlacklist(ctx, "u1", "g1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "spam", entry.ReasonOrDefault())
	assert.Equal(t, "mod2", entry.AddedBy)

	list, err := s.ListBlacklist(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u2", list[0].UserID)
	assert.Nil(t, list[0].Reason)

	removed, err := s.DeleteBlacklist(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.DeleteBlacklist(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i, user := range []string{"u1", "u2", "u3"} {
		id, err := s.InsertPending(ctx, pending(user, "g1", int64(i)))
		require.NoError(t, err)
		if user == "u3" {
			continue
		}
		_, err = s.ResolvePending(ctx, id, models.Resolution{Status: models.StatusApproved})
		require.NoError(t, err)
	}

	counts, err := s.CountByStatus(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Get(models.StatusApproved))
	assert.Equal(t, 1, counts.Get(models.StatusPending))
	assert.Equal(t, 0, counts.Get(models.StatusRejected))
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.InsertPending(ctx, pending("u1", "g1", 100))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "backups")
	path, err := Backup(ctx, s, dir, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup-2024-05-01T12-00-00Z.sqlite"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	restored, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer restored.Close()
	app, err := restored.GetPending(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.NotNil(t, app)
}

func TestBackupUnsupported(t *testing.T) {
	_, err := Backup(context.Background(), NewSQLStore(nil, Postgres), t.TempDir(), time.Now())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStatusOf(t *testing.T) {
	s := openTestStore(t)
	text, ok := StatusOf(context.Background(), s)
	assert.True(t, ok)
	assert.Contains(t, text, "En linea")

	text, ok = StatusOf(context.Background(), nil)
	assert.False(t, ok)
	assert.Contains(t, text, "Desconectado")
}
