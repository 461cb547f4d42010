package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
)

// Backup writes a consistent copy of the store into dir and returns the file
// path. Only the sqlite dialect supports it.
func Backup(ctx context.Context, s Store, dir string, now time.Time) (string, error) {
	sqlStore, ok := s.(*SQLStore)
	if !ok || sqlStore.dialect.Name != SQLite.Name {
		return "", ErrUnsupported
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("no se pudo crear el directorio de respaldos: %w", err)
	}

	name := fmt.Sprintf("backup-%s.sqlite", now.UTC().Format("2006-01-02T15-04-05Z"))
	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("el respaldo %s ya existe", target)
	}

	if _, err := sqlStore.db.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return "", wrap("backup", err)
	}

	logger.Success("Respaldo creado: "+target, "DB")
	return target, nil
}
