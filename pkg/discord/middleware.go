package discord

import (
	"fmt"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

var (
	errGuildOnly         = fmt.Errorf("command used outside a guild")
	errMissingPermission = fmt.Errorf("missing permissions")
	errDevOnly           = fmt.Errorf("dev command outside the dev guild")
)

// CommandMiddleware rejects commands the invoking member may not run
func (c *ExtendedClient) CommandMiddleware(ctx *CommandContext, cmd *Command) error {
	if ctx.Interaction.GuildID == "" || ctx.Member() == nil {
		_ = ctx.ReplyEphemeral("❌ Este comando solo puede usarse dentro de un servidor.")
		return errGuildOnly
	}

	if cmd.IsDev && !isDevGuild(ctx.Interaction.GuildID) {
		_ = ctx.ReplyEphemeral("❌ Este comando solo está disponible en el servidor de desarrollo.")
		return errDevOnly
	}

	if cmd.UserPermissions != 0 && !HasPermissions(ctx.Member().Permissions, cmd.UserPermissions) {
		embed := &discordgo.MessageEmbed{
			Title:       "🚫 Acceso Denegado",
			Description: "No tienes los permisos necesarios para usar este comando.",
			Color:       0xFF0000,
			Timestamp:   time.Now().Format(time.RFC3339),
		}
		_ = ctx.ReplyEphemeralEmbed(embed)

		logger.Warn(fmt.Sprintf("Usuario %s sin permisos intentó usar /%s", ctx.User().ID, cmd.Name), "Middleware")
		return errMissingPermission
	}

	return nil
}

func isDevGuild(guildID string) bool {
	cfg := config.Get()
	return cfg != nil && cfg.DevGuildID != "" && cfg.DevGuildID == guildID
}

// HasPermissions reports whether have grants every bit of want.
// Administrator implies everything.
func HasPermissions(have, want int64) bool {
	if have&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return have&want == want
}
