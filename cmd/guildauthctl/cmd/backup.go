package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/spf13/cobra"
)

var backupDir string

func init() {
	backupCmd.Flags().StringVar(&backupDir, "dir", "", "Directorio de respaldos (por defecto BACKUP_DIR)")
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Crea un respaldo de la base de datos",
	Long: `Crea una copia consistente de la base de datos en un archivo con fecha.

Solo el driver sqlite admite respaldos; para postgres y mongo usa las
herramientas del propio servidor.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := backupDir
		if dir == "" {
			dir = cfg.BackupDir
		}
		return runBackup(cmd.Context(), cmd.OutOrStdout(), cfg, dir, time.Now())
	},
}

type backupResult struct {
	Driver string `json:"driver" yaml:"driver"`
	Path   string `json:"path" yaml:"path"`
}

func runBackup(ctx context.Context, w io.Writer, c *config.Config, dir string, now time.Time) error {
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := database.Open(openCtx, c)
	cancel()
	if err != nil {
		return fmt.Errorf("error abriendo la base de datos: %w", err)
	}
	defer store.Close()

	path, err := database.Backup(ctx, store, dir, now)
	if err != nil {
		return err
	}

	res := backupResult{Driver: c.StoreDriver, Path: path}
	if done, err := formatOutput(w, res); done {
		return err
	}
	_, err = fmt.Fprintf(w, "✅ Respaldo creado en %s\n", path)
	return err
}
