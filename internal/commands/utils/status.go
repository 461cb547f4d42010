package utils

import (
	"fmt"

	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
)

func (u *utils) createStatusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		u.statusHandler,
	)
}

func (u *utils) statusHandler(ctx *discord.CommandContext) error {
	dbStatus, _ := database.StatusOf(ctx.Context(), u.store)
	return ctx.ReplyEphemeral(statusText(dbStatus, ctx.Client.GuildCount()))
}

func statusText(dbStatus string, guilds int) string {
	return fmt.Sprintf(
		"📊 **Estado del Bot**\n"+
			"• Bot: 🟢 Online\n"+
			"• Base de datos: %s\n"+
			"• Servidores: %d",
		dbStatus,
		guilds,
	)
}
