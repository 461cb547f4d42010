package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/guard"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/notify"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guildID = "g1"
	userID  = "u1"
	modID   = "m1"
)

type fakeRoles struct {
	mu        sync.Mutex
	hierarchy guard.Hierarchy
	positions map[string]int
	granted   map[string][]string
	removed   map[string][]string
	addErr    error
	failRole  string
	addCalls  [][]string
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		hierarchy: guard.Hierarchy{BotTop: 10, ActorTop: 5},
		positions: map[string]int{"R1": 2, "R2": 3, "HIGH": 7, "TOP": 12},
		granted:   map[string][]string{},
		removed:   map[string][]string{},
	}
}

func (f *fakeRoles) Hierarchy(context.Context, string, string) (guard.Hierarchy, error) {
	return f.hierarchy, nil
}

func (f *fakeRoles) Role(_ context.Context, _, roleID string) (guard.Role, error) {
	pos, ok := f.positions[roleID]
	if !ok {
		return guard.Role{}, fmt.Errorf("rol %s no encontrado", roleID)
	}
	return guard.Role{ID: roleID, Position: pos}, nil
}

func (f *fakeRoles) AddRole(_ context.Context, _, userID, roleID string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.granted[userID] = append(f.granted[userID], roleID)
	return nil
}

// AddRoles mirrors a single member edit: a rejected role means nothing is granted
func (f *fakeRoles) AddRoles(_ context.Context, _, userID string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, append([]string(nil), roleIDs...))
	if f.addErr != nil {
		return f.addErr
	}
	for _, id := range roleIDs {
		if id == f.failRole {
			return fmt.Errorf("discord 50013: cannot assign %s", id)
		}
	}
	f.granted[userID] = append(f.granted[userID], roleIDs...)
	return nil
}

func (f *fakeRoles) RemoveRole(_ context.Context, _, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[userID] = append(f.removed[userID], roleID)
	return nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	published  []*models.AuthApplication
	outcomes   []notify.Outcome
	notified   []string
	publishErr error
	reflectErr error
	notifyErr  error
}

func (f *fakeNotifier) Publish(_ context.Context, _ string, app *models.AuthApplication, _ []questions.Question) (string, error) {
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, app)
	return fmt.Sprintf("msg-%d", app.ID), nil
}

func (f *fakeNotifier) Reflect(_ context.Context, _, _ string, outcome notify.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return f.reflectErr
}

func (f *fakeNotifier) NotifyApplicant(_ context.Context, userID, _ string, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, userID)
	return f.notifyErr
}

type fakeEvents struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakeEvents) Publish(topic string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

type fixture struct {
	engine   *Engine
	store    *database.SQLStore
	roles    *fakeRoles
	notifier *fakeNotifier
	events   *fakeEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "auth.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := models.NewGuildConfig(guildID)
	cfg.NotificationChannelID = models.StringPtr("notif")
	cfg.Questions = []questions.Question{{Text: "Edad"}, {Text: "Motivo"}}
	require.NoError(t, store.UpsertConfig(ctx, cfg))

	f := &fixture{
		store:    store,
		roles:    newFakeRoles(),
		notifier: &fakeNotifier{},
		events:   &fakeEvents{},
	}
	clock := time.Unix(1700000000, 0)
	f.engine = NewEngine(store, f.roles, f.notifier,
		WithEvents(f.events),
		WithClock(func() time.Time { return clock }),
	)
	return f
}

func (f *fixture) history(t *testing.T) []*models.AuthApplication {
	t.Helper()
	apps, err := f.store.ListHistory(context.Background(), userID, guildID, 100)
	require.NoError(t, err)
	return apps
}

func TestTransition(t *testing.T) {
	next, err := Transition(models.StatusPending, EventApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, next)

	next, err = Transition(models.StatusPending, EventExpire)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, next)

	for _, from := range []models.Status{"", models.StatusApproved, models.StatusRejected, models.StatusCancelled, models.StatusExpired} {
		for _, ev := range []Event{EventCancel, EventApprove, EventReject, EventExpire} {
			_, err := Transition(from, ev)
			assert.ErrorIs(t, err, ErrNoPendingApplication, "%s/%s", from, ev)
		}
	}
}

func TestScenarioApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	app, err := f.engine.Submit(ctx, userID, guildID, []string{"18", "reason"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)
	require.NotNil(t, app.NotificationMessageID)
	require.Len(t, f.notifier.published, 1)

	require.NoError(t, f.engine.Approve(ctx, userID, guildID, modID, []string{"R1"}))

	apps := f.history(t)
	require.Len(t, apps, 1)
	assert.Equal(t, models.StatusApproved, apps[0].Status)
	assert.Equal(t, int64(1700000000), *apps[0].ProcessedAt)
	assert.Equal(t, modID, *apps[0].ProcessorID)
	assert.Equal(t, []string{"18", "reason"}, apps[0].Answers)
	assert.Equal(t, []string{"R1"}, f.roles.granted[userID])

	require.Len(t, f.notifier.outcomes, 1)
	assert.Equal(t, notify.Outcome{Status: models.StatusApproved, ProcessorID: modID, RoleIDs: []string{"R1"}}, f.notifier.outcomes[0])
	assert.Empty(t, f.notifier.notified)
	assert.Equal(t, []string{"applications/pending", "applications/approved"}, f.events.topics)
}

func TestScenarioReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.Submit(ctx, userID, guildID, []string{"18", "reason"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.engine.Reject(ctx, userID, guildID, modID, "   "), ErrReasonRequired)
	require.NoError(t, f.engine.Reject(ctx, userID, guildID, modID, "insufficient info"))

	apps := f.history(t)
	assert.Equal(t, models.StatusRejected, apps[0].Status)
	assert.Equal(t, "insufficient info", *apps[0].Notes)
	assert.Equal(t, modID, *apps[0].ProcessorID)
	assert.Empty(t, f.roles.granted)
	assert.Equal(t, models.StatusRejected, f.notifier.outcomes[0].Status)
	assert.Equal(t, "insufficient info", f.notifier.outcomes[0].Reason)
}

func TestScenarioCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.Submit(ctx, userID, guildID, []string{"18"})
	require.NoError(t, err)
	require.NoError(t, f.engine.Cancel(ctx, userID, guildID))

	apps := f.history(t)
	assert.Equal(t, models.StatusCancelled, apps[0].Status)
	assert.Nil(t, apps[0].ProcessedAt)
	assert.Nil(t, apps[0].ProcessorID)
	assert.Nil(t, apps[0].Notes)
	assert.Equal(t, []string{"18", ""}, apps[0].Answers)
	assert.Equal(t, models.StatusCancelled, f.notifier.outcomes[0].Status)

	assert.ErrorIs(t, f.engine.Cancel(ctx, userID, guildID), ErrNoPendingApplication)
}

func TestScenarioUserHierarchy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.Submit(ctx, userID, guildID, nil)
	require.NoError(t, err)

	err = f.engine.Approve(ctx, userID, guildID, modID, []string{"R1", "HIGH"})
	assert.ErrorIs(t, err, guard.ErrUserHierarchy)
	assert.True(t, IsUserFacing(err))
	assert.Empty(t, f.roles.granted)

	apps := f.history(t)
	assert.Equal(t, models.StatusPending, apps[0].Status)
	assert.Empty(t, f.notifier.outcomes)
}

func TestOwnerNeverBypassesBot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.roles.hierarchy = guard.Hierarchy{BotTop: 10, ActorTop: 0, ActorIsOwner: true}

	_, err := f.engine.Submit(ctx, userID, guildID, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, f.engine.Approve(ctx, userID, guildID, modID, []string{"TOP"}), guard.ErrBotHierarchy)
	require.NoError(t, f.engine.Approve(ctx, userID, guildID, modID, []string{"HIGH"}))
}

func TestSubmitRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.AddToBlacklist(ctx, guildID, "banned", modID, "")
	require.NoError(t, err)
	_, err = f.engine.Submit(ctx, "banned", guildID, nil)
	assert.ErrorIs(t, err, ErrBlacklisted)
	_, err = f.engine.Prepare(ctx, "banned", guildID)
	assert.ErrorIs(t, err, ErrBlacklisted)

	_, err = f.engine.Submit(ctx, userID, guildID, nil)
	require.NoError(t, err)
	_, err = f.engine.Submit(ctx, userID, guildID, nil)
	assert.ErrorIs(t, err, ErrDuplicatePending)
	_, err = f.engine.Prepare(ctx, userID, guildID)
	assert.ErrorIs(t, err, ErrDuplicatePending)

	_, err = f.engine.Submit(ctx, "u2", "unconfigured", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = f.engine.Prepare(ctx, "u2", "unconfigured")
	assert.ErrorIs(t, err, ErrNoQuestions)

	counts, err := f.engine.Stats(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Get(models.StatusPending))
	banned, err := f.store.ListHistory(ctx, "banned", guildID, 10)
	require.NoError(t, err)
	assert.Empty(t, banned)
}

func TestPrepareReturnsQuestions(t *testing.T) {
	f := newFixture(t)
	set, err := f.engine.Prepare(context.Background(), userID, guildID)
	require.NoError(t, err)
	assert.Len(t, set, 2)
}

func TestConcurrentSubmitKeepsOnePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Submit(ctx, userID, guildID, []string{"a", "b"})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrDuplicatePending)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, f.history(t), 1)
}

func TestDecisionWithoutPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.Approve(ctx, userID, guildID, modID, []string{"R1"}), ErrNoPendingApplication)
	assert.ErrorIs(t, f.engine.Reject(ctx, userID, guildID, modID, "no"), ErrNoPendingApplication)
	assert.ErrorIs(t, f.engine.Approve(ctx, userID, guildID, modID, nil), ErrNoRoles)
	assert.Empty(t, f.roles.granted)
	assert.Empty(t, f.history(t))
}

func TestSecondDecisionIsRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.Submit(ctx, userID, guildID, nil)
	require.NoError(t, err)
	require.NoError(t, f.engine.Reject(ctx, userID, guildID, modID, "no"))

	assert.ErrorIs(t, f.engine.Approve(ctx, userID, guildID, modID, []string{"R1"}), ErrNoPendingApplication)
	assert.Empty(t, f.roles.granted)
	assert.Equal(t, models.StatusRejected, f.history(t)[0].Status)
}

func TestRoleGrantFailureLeavesPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.roles.addErr = errors.New("missing permissions")

	_, err := f.engine.Submit(ctx, userID, guildID, nil)
	require.NoError(t, err)

	err = f.engine.Approve(ctx, userID, guildID, modID, []string{"R1"})
	var se *notify.SurfaceError
	require.ErrorAs(t, err, &se)
	assert.False(t, IsUserFacing(err))
	assert.Equal(t, models.StatusPending, f.history(t)[0].Status)
}

func TestMultiRoleApprovalIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.roles.failRole = "R2"

	_, err := f.engine.Submit(ctx, userID, guildID, nil)
	require.NoError(t, err)

	err = f.engine.Approve(ctx, userID, guildID, modID, []string{"R1", "R2"})
	var se *notify.SurfaceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, [][]string{{"R1", "R2"}}, f.roles.addCalls)
	assert.Empty(t, f.roles.granted[userID])
	assert.Equal(t, models.StatusPending, f.history(t)[0].Status)

	f.roles.failRole = ""
	require.NoError(t, f.engine.Approve(ctx, userID, guildID, modID, []string{"R1", "R2"}))
	assert.Equal(t, []string{"R1", "R2"}, f.roles.granted[userID])
	assert.Equal(t, models.StatusApproved, f.history(t)[0].Status)
}

func TestConcurrentConfigUpdatesKeepEveryField(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.engine.UpdateConfig(ctx, guildID, func(c *models.GuildConfig) { c.DMNotificationEnabled = true })
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.UpdateConfig(ctx, guildID, func(c *models.GuildConfig) {
				c.Questions = append(c.Questions, questions.Question{Text: fmt.Sprintf("P%d", i)})
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := f.store.GetConfig(ctx, guildID)
	require.NoError(t, err)
	assert.True(t, stored.DMNotificationEnabled)
	assert.Len(t, stored.Questions, 2+10)
	assert.Equal(t, "notif", *stored.NotificationChannelID)
}

func TestSurfaceFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.engine.UpdateConfig(ctx, guildID, func(c *models.GuildConfig) { c.DMNotificationEnabled = true })
	require.NoError(t, err)

	f.notifier.publishErr = errors.New("cannot post")
	app, err := f.engine.Submit(ctx, userID, guildID, nil)
	require.NoError(t, err)
	assert.Nil(t, app.NotificationMessageID)

	f.notifier.notifyErr = errors.New("dm closed")
	require.NoError(t, f.engine.Approve(ctx, userID, guildID, modID, []string{"R1", "R2"}))
	assert.Equal(t, []string{userID}, f.notifier.notified)
	assert.Empty(t, f.notifier.outcomes)
	assert.Equal(t, models.StatusApproved, f.history(t)[0].Status)
}

func TestRetentionThroughEngine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	now := int64(1000)
	f.engine.now = func() time.Time { return time.Unix(now, 0) }

	for i := 0; i < models.HistoryLimit+3; i++ {
		_, err := f.engine.Submit(ctx, userID, guildID, nil)
		require.NoError(t, err)
		require.NoError(t, f.engine.Cancel(ctx, userID, guildID))
		now++
	}

	apps := f.history(t)
	require.Len(t, apps, models.HistoryLimit)
	assert.Equal(t, int64(1000+models.HistoryLimit+2), apps[0].AppliedAt)
	assert.Equal(t, int64(1003), apps[len(apps)-1].AppliedAt)
}

func TestBlacklistAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entry, err := f.engine.AddToBlacklist(ctx, guildID, "u9", modID, "  spam ")
	require.NoError(t, err)
	assert.Equal(t, "spam", entry.ReasonOrDefault())

	list, err := f.engine.Blacklist(ctx, guildID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.engine.RemoveFromBlacklist(ctx, guildID, "u9"))
	assert.ErrorIs(t, f.engine.RemoveFromBlacklist(ctx, guildID, "u9"), ErrNotBlacklisted)
}

func TestManageRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.engine.ManageRole(ctx, guildID, modID, "u5", "R2", RoleAdd))
	require.NoError(t, f.engine.ManageRole(ctx, guildID, modID, "u5", "R1", RoleRemove))
	assert.Equal(t, []string{"R2"}, f.roles.granted["u5"])
	assert.Equal(t, []string{"R1"}, f.roles.removed["u5"])

	assert.ErrorIs(t, f.engine.ManageRole(ctx, guildID, modID, "u5", "TOP", RoleAdd), guard.ErrBotHierarchy)
}

func TestUpdateConfigCreatesDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cfg, err := f.engine.UpdateConfig(ctx, "g2", func(c *models.GuildConfig) {
		c.NotificationChannelID = models.StringPtr("c2")
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPanelMessage, cfg.PanelMessage)

	stored, err := f.store.GetConfig(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, "c2", *stored.NotificationChannelID)
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, IsUserFacing(ErrDuplicatePending))
	assert.True(t, IsUserFacing(fmt.Errorf("wrapped: %w", ErrNoQuestions)))
	assert.False(t, IsUserFacing(&database.StoreError{Op: "x", Err: errors.New("io")}))
	assert.False(t, IsUserFacing(nil))
}
