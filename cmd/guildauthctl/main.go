// guildauthctl is the operator CLI of GuildAuthBot: slash command sync,
// store backups and live stats over MQTT.
package main

import (
	"os"

	"github.com/PancyStudios/GuildAuthBot/cmd/guildauthctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
