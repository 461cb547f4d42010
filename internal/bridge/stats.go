// Package bridge answers MQTT requests from the bot's own state.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/mqtt"
)

// StatsTopic is the request topic answered with per-guild counts
const StatsTopic = "stats"

const requestTimeout = 5 * time.Second

var ErrMissingGuild = errors.New("guildId es obligatorio")

// StatsSource is the read side used to answer stats requests
type StatsSource interface {
	Stats(ctx context.Context, guildID string) (models.StatusCounts, error)
}

// StatsHandler answers {"guildId": "..."} with the count of every status
func StatsHandler(src StatsSource) mqtt.RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		guildID, _ := payload["guildId"].(string)
		if guildID == "" {
			return nil, ErrMissingGuild
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		counts, err := src.Stats(ctx, guildID)
		if err != nil {
			return nil, err
		}

		out := make(map[string]int, len(models.AllStatuses))
		for _, s := range models.AllStatuses {
			out[string(s)] = counts.Get(s)
		}
		return map[string]interface{}{
			"guildId": guildID,
			"counts":  out,
		}, nil
	}
}

// Register subscribes every request handler on mc
func Register(mc *mqtt.MqttCommunicator, src StatsSource) error {
	return mc.On(StatsTopic, StatsHandler(src))
}
