package utils

import (
	"fmt"

	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
)

func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Comprueba la latencia del bot",
		"utils",
		pingHandler,
	)
}

func pingHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyEphemeral(fmt.Sprintf("🏓 Pong! Latencia: %dms", ctx.Client.Ping().Milliseconds()))
}
