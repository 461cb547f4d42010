package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/PancyStudios/GuildAuthBot/internal/bridge"
	"github.com/PancyStudios/GuildAuthBot/pkg/mqtt"
	"github.com/spf13/cobra"
)

var (
	statsGuild   string
	statsTimeout time.Duration
)

func init() {
	statsCmd.Flags().StringVar(&statsGuild, "guild", "", "Servidor a consultar")
	statsCmd.Flags().DurationVar(&statsTimeout, "timeout", 10*time.Second, "Tiempo máximo de espera de la respuesta")
	_ = statsCmd.MarkFlagRequired("guild")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Consulta al bot en ejecución el número de solicitudes por estado",
	Long: `Envía una solicitud MQTT al bot en ejecución y muestra el número de
solicitudes por estado del servidor indicado.

Ejemplo:
  guildauthctl stats --guild 123456789012345678 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus := mqtt.NewMqttCommunicator(mqtt.Options{
			Host:        cfg.MQTTHost,
			Port:        cfg.MQTTPort,
			Username:    cfg.MQTTUser,
			Password:    cfg.MQTTPassword,
			ClientID:    cfg.MQTTClientID() + "_ctl",
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		defer bus.Destroy()

		return runStats(cmd.OutOrStdout(), bus, statsGuild, statsTimeout)
	},
}

// Requester is the request side of the MQTT bus
type Requester interface {
	Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error)
}

func runStats(w io.Writer, bus Requester, guildID string, timeout time.Duration) error {
	data, err := bus.Request(bridge.StatsTopic, map[string]string{"guildId": guildID}, timeout)
	if err != nil {
		return fmt.Errorf("el bot no respondió: %w", err)
	}
	if done, err := formatOutput(w, data); done {
		return err
	}

	body, _ := data.(map[string]interface{})
	counts, _ := body["counts"].(map[string]interface{})
	if counts == nil {
		return fmt.Errorf("respuesta inesperada: %v", data)
	}

	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ESTADO\tSOLICITUDES\n")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%v\n", s, counts[s])
	}
	return tw.Flush()
}
