// Package utils holds the /utils maintenance commands.
package utils

import (
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
)

type utils struct {
	store database.Store
}

// RegisterUtilsCommands registers /utils ping, status, stats and help
func RegisterUtilsCommands(client *discord.ExtendedClient, store database.Store) {
	u := &utils{store: store}

	group := client.CommandHandler.BuildCommandGroup(
		"utils",
		"Comandos de utilidad",
		0,
		[]*discord.Command{
			createPingCommand(),
			u.createStatusCommand(),
			createStatsCommand(),
			createHelpCommand(),
		},
	)
	client.CommandHandler.AddGlobalCommand(group)
}
