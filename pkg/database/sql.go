package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the differences between the SQL engines we run on
type Dialect struct {
	Name       string
	Driver     string
	idColumn   string
	positional bool
}

var (
	// SQLite is the embedded default backend
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	// Postgres is the networked backend
	Postgres = Dialect{Name: "postgres", Driver: "pgx", idColumn: "BIGSERIAL PRIMARY KEY", positional: true}
)

// rebind rewrites '?' placeholders as $1, $2... for engines that need it
func (d Dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements Store over database/sql
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	path    string
}

// NewSQLStore wraps an already opened database. The schema is not touched.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQLite opens (or creates) the sqlite database at path and migrates it
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	logger.System("Abriendo base de datos SQLite: "+path, "DB")

	db, err := sql.Open(SQLite.Driver, path)
	if err != nil {
		return nil, wrap("open", err)
	}
	// One connection: writers queue up instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, wrap("pragma", err)
		}
	}

	s := &SQLStore{db: db, dialect: SQLite, path: path}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Success("Conectado exitosamente a la base de datos.", "DB")
	return s, nil
}

// OpenPostgres connects to postgres through pgx and migrates the schema
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL no configurada")
	}
	logger.System("Intentando conectar a la base de datos...", "DB")

	db, err := sql.Open(Postgres.Driver, dsn)
	if err != nil {
		return nil, wrap("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Critical("Fallo al verificar conexión con la base de datos.", "DB")
		db.Close()
		return nil, wrap("ping", err)
	}

	s := &SQLStore{db: db, dialect: Postgres}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Success("Conectado exitosamente a la base de datos.", "DB")
	return s, nil
}

// Dialect returns the engine this store talks to
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Path returns the sqlite file path, empty for other engines
func (s *SQLStore) Path() string {
	return s.path
}

// Migrate creates the tables and indexes if they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS guild_config (
			guild_id TEXT PRIMARY KEY,
			notification_channel_id TEXT,
			panel_channel_id TEXT,
			panel_message_id TEXT,
			auth_panel_message TEXT NOT NULL DEFAULT '` + models.DefaultPanelMessage + `',
			modal_questions TEXT NOT NULL DEFAULT '[]',
			dm_notification_enabled INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS auth_applications (
			id ` + s.dialect.idColumn + `,
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			status TEXT NOT NULL,
			answers TEXT NOT NULL,
			applied_at BIGINT NOT NULL,
			processed_at BIGINT,
			processor_id TEXT,
			notes TEXT,
			notification_message_id TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS auth_applications_one_pending
			ON auth_applications (user_id, guild_id) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS auth_applications_history
			ON auth_applications (user_id, guild_id, applied_at)`,
		`CREATE INDEX IF NOT EXISTS auth_applications_guild_status
			ON auth_applications (guild_id, status)`,
		`CREATE TABLE IF NOT EXISTS blacklist (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			reason TEXT,
			added_at BIGINT NOT NULL,
			added_by TEXT NOT NULL,
			PRIMARY KEY (user_id, guild_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrap("migrate", err)
		}
	}
	return nil
}

// isUniqueViolation recognises unique index failures from every engine
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}

// Config

func (s *SQLStore) GetConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT guild_id, notification_channel_id, panel_channel_id, panel_message_id,
		       auth_panel_message, modal_questions, dm_notification_enabled
		FROM guild_config WHERE guild_id = ?`), guildID)

	var (
		cfg                        models.GuildConfig
		notif, panelChan, panelMsg sql.NullString
		rawQuestions               string
		dmEnabled                  int
	)
	err := row.Scan(&cfg.GuildID, &notif, &panelChan, &panelMsg, &cfg.PanelMessage, &rawQuestions, &dmEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get config", err)
	}

	cfg.NotificationChannelID = nullString(notif)
	cfg.PanelChannelID = nullString(panelChan)
	cfg.PanelMessageID = nullString(panelMsg)
	cfg.Questions = questions.Parse(rawQuestions)
	cfg.DMNotificationEnabled = dmEnabled != 0
	return &cfg, nil
}

func (s *SQLStore) UpsertConfig(ctx context.Context, cfg *models.GuildConfig) error {
	panelMessage := cfg.PanelMessage
	if panelMessage == "" {
		panelMessage = models.DefaultPanelMessage
	}
	dm := 0
	if cfg.DMNotificationEnabled {
		dm = 1
	}

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO guild_config (guild_id, notification_channel_id, panel_channel_id, panel_message_id,
		                          auth_panel_message, modal_questions, dm_notification_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			notification_channel_id = excluded.notification_channel_id,
			panel_channel_id = excluded.panel_channel_id,
			panel_message_id = excluded.panel_message_id,
			auth_panel_message = excluded.auth_panel_message,
			modal_questions = excluded.modal_questions,
			dm_notification_enabled = excluded.dm_notification_enabled`),
		cfg.GuildID,
		cfg.NotificationChannelID,
		cfg.PanelChannelID,
		cfg.PanelMessageID,
		panelMessage,
		questions.Serialize(cfg.Questions),
		dm,
	)
	return wrap("upsert config", err)
}

// Blacklist

func (s *SQLStore) GetBlacklist(ctx context.Context, userID, guildID string) (*models.BlacklistEntry, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT user_id, guild_id, reason, added_at, added_by
		FROM blacklist WHERE user_id = ? AND guild_id = ?`), userID, guildID)

	entry, err := scanBlacklist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get blacklist", err)
	}
	return entry, nil
}

func (s *SQLStore) UpsertBlacklist(ctx context.Context, entry *models.BlacklistEntry) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO blacklist (user_id, guild_id, reason, added_at, added_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET
			reason = excluded.reason,
			added_at = excluded.added_at,
			added_by = excluded.added_by`),
		entry.UserID, entry.GuildID, entry.Reason, entry.AddedAt, entry.AddedBy)
	return wrap("upsert blacklist", err)
}

func (s *SQLStore) DeleteBlacklist(ctx context.Context, userID, guildID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM blacklist WHERE user_id = ? AND guild_id = ?`), userID, guildID)
	if err != nil {
		return false, wrap("delete blacklist", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete blacklist", err)
	}
	return n > 0, nil
}

func (s *SQLStore) ListBlacklist(ctx context.Context, guildID string) ([]*models.BlacklistEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT user_id, guild_id, reason, added_at, added_by
		FROM blacklist WHERE guild_id = ? ORDER BY added_at ASC`), guildID)
	if err != nil {
		return nil, wrap("list blacklist", err)
	}
	defer rows.Close()

	var out []*models.BlacklistEntry
	for rows.Next() {
		entry, err := scanBlacklist(rows)
		if err != nil {
			return nil, wrap("list blacklist", err)
		}
		out = append(out, entry)
	}
	return out, wrap("list blacklist", rows.Err())
}

// Applications

const applicationColumns = `id, user_id, guild_id, status, answers, applied_at,
	processed_at, processor_id, notes, notification_message_id`

func (s *SQLStore) InsertPending(ctx context.Context, app *models.AuthApplication) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrap("insert pending", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT COUNT(*) FROM auth_applications WHERE user_id = ? AND guild_id = ?`),
		app.UserID, app.GuildID).Scan(&count)
	if err != nil {
		return 0, wrap("insert pending", err)
	}

	if count >= models.HistoryLimit {
		_, err = tx.ExecContext(ctx, s.dialect.rebind(`
			DELETE FROM auth_applications WHERE id IN (
				SELECT id FROM auth_applications
				WHERE user_id = ? AND guild_id = ? AND status <> 'pending'
				ORDER BY applied_at ASC, id ASC
				LIMIT ?
			)`), app.UserID, app.GuildID, count-models.HistoryLimit+1)
		if err != nil {
			return 0, wrap("trim history", err)
		}
	}

	var id int64
	err = tx.QueryRowContext(ctx, s.dialect.rebind(`
		INSERT INTO auth_applications (user_id, guild_id, status, answers, applied_at)
		VALUES (?, ?, 'pending', ?, ?)
		RETURNING id`),
		app.UserID, app.GuildID, questions.EncodeAnswers(app.Answers), app.AppliedAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicatePending
		}
		return 0, wrap("insert pending", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicatePending
		}
		return 0, wrap("insert pending", err)
	}
	return id, nil
}

func (s *SQLStore) GetPending(ctx context.Context, userID, guildID string) (*models.AuthApplication, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT `+applicationColumns+`
		FROM auth_applications
		WHERE user_id = ? AND guild_id = ? AND status = 'pending'`), userID, guildID)

	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get pending", err)
	}
	return app, nil
}

func (s *SQLStore) ResolvePending(ctx context.Context, id int64, res models.Resolution) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		UPDATE auth_applications
		SET status = ?, processed_at = ?, processor_id = ?, notes = ?
		WHERE id = ? AND status = 'pending'`),
		string(res.Status), res.ProcessedAt, res.ProcessorID, res.Notes, id)
	if err != nil {
		return false, wrap("resolve pending", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrap("resolve pending", err)
	}
	return n > 0, nil
}

func (s *SQLStore) SetNotificationMessage(ctx context.Context, id int64, messageID string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE auth_applications SET notification_message_id = ? WHERE id = ?`), messageID, id)
	return wrap("set notification message", err)
}

func (s *SQLStore) ListHistory(ctx context.Context, userID, guildID string, limit int) ([]*models.AuthApplication, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT `+applicationColumns+`
		FROM auth_applications
		WHERE user_id = ? AND guild_id = ?
		ORDER BY applied_at DESC, id DESC
		LIMIT ?`), userID, guildID, limit)
	if err != nil {
		return nil, wrap("list history", err)
	}
	defer rows.Close()

	var out []*models.AuthApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, wrap("list history", err)
		}
		out = append(out, app)
	}
	return out, wrap("list history", rows.Err())
}

func (s *SQLStore) CountByStatus(ctx context.Context, guildID string) (models.StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT status, COUNT(*) FROM auth_applications
		WHERE guild_id = ? GROUP BY status`), guildID)
	if err != nil {
		return nil, wrap("count by status", err)
	}
	defer rows.Close()

	counts := models.StatusCounts{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, wrap("count by status", err)
		}
		counts[models.Status(status)] = n
	}
	return counts, wrap("count by status", rows.Err())
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return wrap("ping", s.db.PingContext(ctx))
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// scanning helpers

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBlacklist(row scanner) (*models.BlacklistEntry, error) {
	var (
		entry  models.BlacklistEntry
		reason sql.NullString
	)
	if err := row.Scan(&entry.UserID, &entry.GuildID, &reason, &entry.AddedAt, &entry.AddedBy); err != nil {
		return nil, err
	}
	entry.Reason = nullString(reason)
	return &entry, nil
}

func scanApplication(row scanner) (*models.AuthApplication, error) {
	var (
		app                     models.AuthApplication
		status, answers         string
		processedAt             sql.NullInt64
		processor, notes, msgID sql.NullString
	)
	err := row.Scan(&app.ID, &app.UserID, &app.GuildID, &status, &answers, &app.AppliedAt,
		&processedAt, &processor, &notes, &msgID)
	if err != nil {
		return nil, err
	}

	app.Status = models.Status(status)
	app.Answers = questions.DecodeAnswers(answers)
	if processedAt.Valid {
		app.ProcessedAt = models.Int64Ptr(processedAt.Int64)
	}
	app.ProcessorID = nullString(processor)
	app.Notes = nullString(notes)
	app.NotificationMessageID = nullString(msgID)
	return &app, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
