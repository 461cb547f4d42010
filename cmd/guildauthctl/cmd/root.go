// Package cmd implements the guildauthctl commands.
package cmd

import (
	"fmt"
	"io"

	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Global flags
	outputFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "guildauthctl",
	Short:        "🔐 Herramienta de operación de GuildAuthBot",
	Long:         "guildauthctl sincroniza los comandos slash, respalda la base de datos y consulta estadísticas del bot.",
	Version:      config.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		switch outputFormat {
		case "table", "json", "yaml":
		default:
			return fmt.Errorf("formato de salida desconocido: %s", outputFormat)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Formato de salida: table, json, yaml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// formatOutput writes data as json or yaml. It reports false for table
// output, which each command renders itself.
func formatOutput(w io.Writer, data interface{}) (bool, error) {
	switch outputFormat {
	case "json":
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return true, err
		}
		_, err = fmt.Fprintln(w, string(out))
		return true, err
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return true, err
		}
		_, err = fmt.Fprint(w, string(out))
		return true, err
	default:
		return false, nil
	}
}
