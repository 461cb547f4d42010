// Package auth drives the application lifecycle: a member submits answers,
// a moderator approves (granting roles) or rejects, or the member cancels.
//
// Every lifecycle operation re-reads the store, and the store's unique index
// on pending rows plus conditional updates are what keep two racing
// operations from both succeeding. Configuration edits are serialized per
// guild inside the engine.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/guard"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/notify"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
)

// RoleProvider resolves and mutates roles on the chat platform
type RoleProvider interface {
	Hierarchy(ctx context.Context, guildID, actorID string) (guard.Hierarchy, error)
	Role(ctx context.Context, guildID, roleID string) (guard.Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	// AddRoles grants every role in one edit; on error none is granted
	AddRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
}

// Notifier keeps the moderator-facing message in step with the store
type Notifier interface {
	Publish(ctx context.Context, channelID string, app *models.AuthApplication, set []questions.Question) (string, error)
	Reflect(ctx context.Context, channelID, messageID string, outcome notify.Outcome) error
	NotifyApplicant(ctx context.Context, userID, guildID string, roleIDs []string) error
}

// EventPublisher receives lifecycle events
type EventPublisher interface {
	Publish(topic string, payload interface{}) error
}

// LifecycleEvent is published after every successful transition
type LifecycleEvent struct {
	ApplicationID int64         `json:"applicationId"`
	UserID        string        `json:"userId"`
	GuildID       string        `json:"guildId"`
	Status        models.Status `json:"status"`
	ProcessorID   *string       `json:"processorId,omitempty"`
	At            int64         `json:"at"`
}

// Topic is where the event is published, relative to the bus prefix
func (e LifecycleEvent) Topic() string {
	return "applications/" + string(e.Status)
}

// Engine implements the lifecycle operations
type Engine struct {
	store    database.Store
	roles    RoleProvider
	notifier Notifier
	events   EventPublisher
	now      func() time.Time

	configLocks sync.Map // guildID -> *sync.Mutex
}

// Option configures an Engine
type Option func(*Engine)

// WithEvents publishes lifecycle events on p
func WithEvents(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over its collaborators
func NewEngine(store database.Store, roles RoleProvider, notifier Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		roles:    roles,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store
func (e *Engine) Store() database.Store {
	return e.store
}

func (e *Engine) unix() int64 {
	return e.now().Unix()
}

// refuseSubmission runs the checks shared by Prepare and Submit
func (e *Engine) refuseSubmission(ctx context.Context, userID, guildID string) error {
	entry, err := e.store.GetBlacklist(ctx, userID, guildID)
	if err != nil {
		return err
	}
	if entry != nil {
		return ErrBlacklisted
	}

	pending, err := e.store.GetPending(ctx, userID, guildID)
	if err != nil {
		return err
	}
	if pending != nil {
		return ErrDuplicatePending
	}
	return nil
}

// Prepare is the submission trigger: it returns the questionnaire to show
func (e *Engine) Prepare(ctx context.Context, userID, guildID string) ([]questions.Question, error) {
	if err := e.refuseSubmission(ctx, userID, guildID); err != nil {
		return nil, err
	}

	cfg, err := e.store.GetConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || len(cfg.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	return cfg.Questions, nil
}

// Submit records a new pending application and posts it for moderators
func (e *Engine) Submit(ctx context.Context, userID, guildID string, answers []string) (*models.AuthApplication, error) {
	if err := e.refuseSubmission(ctx, userID, guildID); err != nil {
		return nil, err
	}

	cfg, err := e.store.GetConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	channelID, ok := cfg.NotificationChannel()
	if !ok {
		return nil, ErrNotConfigured
	}

	app := &models.AuthApplication{
		UserID:    userID,
		GuildID:   guildID,
		Status:    models.StatusPending,
		Answers:   questions.AlignAnswers(cfg.Questions, answers),
		AppliedAt: e.unix(),
	}

	id, err := e.store.InsertPending(ctx, app)
	if err != nil {
		return nil, err
	}
	app.ID = id

	msgID, err := e.notifier.Publish(ctx, channelID, app, cfg.Questions)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo publicar la solicitud %d: %v", id, err), "Auth")
	} else if err := e.store.SetNotificationMessage(ctx, id, msgID); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo guardar el mensaje de la solicitud %d: %v", id, err), "Auth")
	} else {
		app.NotificationMessageID = &msgID
	}

	e.emit(app, nil)
	return app, nil
}

// pendingFor loads the pending application of a pair
func (e *Engine) pendingFor(ctx context.Context, userID, guildID string) (*models.AuthApplication, error) {
	app, err := e.store.GetPending(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNoPendingApplication
	}
	return app, nil
}

// resolve applies ev to app through the conditional store update
func (e *Engine) resolve(ctx context.Context, app *models.AuthApplication, ev Event, res models.Resolution) error {
	next, err := Transition(app.Status, ev)
	if err != nil {
		return err
	}
	res.Status = next

	ok, err := e.store.ResolvePending(ctx, app.ID, res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPendingApplication
	}

	app.Status = next
	app.ProcessedAt = res.ProcessedAt
	app.ProcessorID = res.ProcessorID
	app.Notes = res.Notes
	return nil
}

// reflect updates the posted message; failures are logged only
func (e *Engine) reflect(ctx context.Context, app *models.AuthApplication, cfg *models.GuildConfig, outcome notify.Outcome) {
	if app.NotificationMessageID == nil {
		return
	}
	channelID, ok := cfg.NotificationChannel()
	if !ok {
		return
	}
	if err := e.notifier.Reflect(ctx, channelID, *app.NotificationMessageID, outcome); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo actualizar el mensaje de la solicitud %d: %v", app.ID, err), "Auth")
	}
}

// config loads the guild config for side effects; a failure only disables them
func (e *Engine) config(ctx context.Context, guildID string) *models.GuildConfig {
	cfg, err := e.store.GetConfig(ctx, guildID)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo leer la configuración de %s: %v", guildID, err), "Auth")
		return nil
	}
	return cfg
}

// Cancel lets a member withdraw their pending application
func (e *Engine) Cancel(ctx context.Context, userID, guildID string) error {
	app, err := e.pendingFor(ctx, userID, guildID)
	if err != nil {
		return err
	}
	if err := e.resolve(ctx, app, EventCancel, models.Resolution{}); err != nil {
		return err
	}

	e.reflect(ctx, app, e.config(ctx, guildID), notify.Outcome{Status: models.StatusCancelled})
	e.emit(app, nil)
	return nil
}

// Approve grants roleIDs to the applicant and closes the application
func (e *Engine) Approve(ctx context.Context, userID, guildID, moderatorID string, roleIDs []string) error {
	if len(roleIDs) == 0 {
		return ErrNoRoles
	}

	app, err := e.pendingFor(ctx, userID, guildID)
	if err != nil {
		return err
	}
	if err := e.CheckRoleAuthorization(ctx, guildID, moderatorID, roleIDs...); err != nil {
		return err
	}

	if err := e.roles.AddRoles(ctx, guildID, userID, roleIDs); err != nil {
		return &notify.SurfaceError{Op: "add roles " + strings.Join(roleIDs, ","), Err: err}
	}

	res := models.Resolution{
		ProcessedAt: models.Int64Ptr(e.unix()),
		ProcessorID: models.StringPtr(moderatorID),
	}
	if err := e.resolve(ctx, app, EventApprove, res); err != nil {
		return err
	}

	cfg := e.config(ctx, guildID)
	e.reflect(ctx, app, cfg, notify.Outcome{
		Status:      models.StatusApproved,
		ProcessorID: moderatorID,
		RoleIDs:     roleIDs,
	})
	if cfg != nil && cfg.DMNotificationEnabled {
		if err := e.notifier.NotifyApplicant(ctx, userID, guildID, roleIDs); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo enviar MD a %s: %v", userID, err), "Auth")
		}
	}

	e.emit(app, app.ProcessorID)
	return nil
}

// Reject closes the application with a mandatory reason
func (e *Engine) Reject(ctx context.Context, userID, guildID, moderatorID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}

	app, err := e.pendingFor(ctx, userID, guildID)
	if err != nil {
		return err
	}

	res := models.Resolution{
		ProcessedAt: models.Int64Ptr(e.unix()),
		ProcessorID: models.StringPtr(moderatorID),
		Notes:       models.StringPtr(reason),
	}
	if err := e.resolve(ctx, app, EventReject, res); err != nil {
		return err
	}

	e.reflect(ctx, app, e.config(ctx, guildID), notify.Outcome{
		Status:      models.StatusRejected,
		ProcessorID: moderatorID,
		Reason:      reason,
	})
	e.emit(app, app.ProcessorID)
	return nil
}

// CheckRoleAuthorization clears roleIDs against the hierarchy as seen by
// actorID. Nothing is mutated.
func (e *Engine) CheckRoleAuthorization(ctx context.Context, guildID, actorID string, roleIDs ...string) error {
	h, err := e.roles.Hierarchy(ctx, guildID, actorID)
	if err != nil {
		return err
	}

	roles := make([]guard.Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		role, err := e.roles.Role(ctx, guildID, id)
		if err != nil {
			return err
		}
		roles = append(roles, role)
	}
	return guard.CheckRoles(h, roles)
}

// emit publishes the lifecycle event for app's current state
func (e *Engine) emit(app *models.AuthApplication, processorID *string) {
	if e.events == nil {
		return
	}
	ev := LifecycleEvent{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		GuildID:       app.GuildID,
		Status:        app.Status,
		ProcessorID:   processorID,
		At:            e.unix(),
	}
	if err := e.events.Publish(ev.Topic(), ev); err != nil {
		logger.Warn("No se pudo publicar el evento: "+err.Error(), "Auth")
	}
}
