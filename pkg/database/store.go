// Package database provides the persistent store for guild configuration,
// authentication applications and the blacklist.
//
// Two backends implement Store: SQLStore (sqlite or postgres through
// database/sql) and MongoStore. Both enforce "one pending application per
// user and guild" in the database itself, so concurrent submissions never
// rely on an in-memory lock.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
)

// Sentinel errors
var (
	// ErrDuplicatePending is returned by InsertPending when the pair already
	// has a pending application
	ErrDuplicatePending = errors.New("ya existe una solicitud pendiente")
	// ErrUnsupported is returned for operations a backend cannot perform
	ErrUnsupported = errors.New("operación no soportada por este almacenamiento")
)

// StoreError wraps any failure coming from the storage engine
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrap turns a driver error into a *StoreError
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err came from the storage engine
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Store is the persistence boundary used by the rest of the bot.
// Getters return (nil, nil) when the row does not exist.
type Store interface {
	GetConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	UpsertConfig(ctx context.Context, cfg *models.GuildConfig) error

	GetBlacklist(ctx context.Context, userID, guildID string) (*models.BlacklistEntry, error)
	UpsertBlacklist(ctx context.Context, entry *models.BlacklistEntry) error
	DeleteBlacklist(ctx context.Context, userID, guildID string) (bool, error)
	ListBlacklist(ctx context.Context, guildID string) ([]*models.BlacklistEntry, error)

	// InsertPending trims the pair's history to make room and inserts app as
	// pending in one atomic step, returning the new id.
	InsertPending(ctx context.Context, app *models.AuthApplication) (int64, error)
	GetPending(ctx context.Context, userID, guildID string) (*models.AuthApplication, error)
	// ResolvePending moves application id out of pending. It reports false
	// when the row was no longer pending.
	ResolvePending(ctx context.Context, id int64, res models.Resolution) (bool, error)
	SetNotificationMessage(ctx context.Context, id int64, messageID string) error
	ListHistory(ctx context.Context, userID, guildID string, limit int) ([]*models.AuthApplication, error)
	CountByStatus(ctx context.Context, guildID string) (models.StatusCounts, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected in the configuration
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresURL)
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoDBURL, cfg.DBName)
	default:
		return nil, fmt.Errorf("driver de almacenamiento desconocido: %q", cfg.StoreDriver)
	}
}

// StatusOf renders the connection state shown by status commands
func StatusOf(ctx context.Context, s Store) (string, bool) {
	if s == nil {
		return "🔴 | Desconectado", false
	}
	if err := s.Ping(ctx); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}
