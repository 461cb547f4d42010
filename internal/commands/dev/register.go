// Package dev holds the operator commands, registered only in the dev guild.
package dev

import (
	lifecycle "github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

type dev struct {
	engine    *lifecycle.Engine
	backupDir string
}

func idOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

// Register registers all dev commands as /dev subcommands (only in dev guild)
func Register(client *discord.ExtendedClient, engine *lifecycle.Engine, cfg *config.Config) {
	d := &dev{engine: engine, backupDir: cfg.BackupDir}
	const admin = discordgo.PermissionAdministrator

	blacklistGroup := client.CommandHandler.BuildSubcommandGroup("dev", "blacklist", "Lista negra de cualquier servidor", admin,
		discord.NewCommand("add", "Bloquea a un usuario en un servidor", "dev", d.blacklistAdd).
			AsDev().
			WithOptions(
				idOption("servidor", "ID del servidor"),
				idOption("usuario", "ID del usuario"),
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "razon",
					Description: "Razón del bloqueo",
				},
			),
		discord.NewCommand("remove", "Desbloquea a un usuario en un servidor", "dev", d.blacklistRemove).
			AsDev().
			WithOptions(
				idOption("servidor", "ID del servidor"),
				idOption("usuario", "ID del usuario"),
			),
	)

	devGroup := client.CommandHandler.BuildCommandGroup("dev", "Comandos de desarrollo", admin,
		[]*discord.Command{
			discord.NewCommand("backup", "Crea un respaldo de la base de datos", "dev", d.backup).AsDev(),
			discord.NewCommand("stats", "Solicitudes por estado de cualquier servidor", "dev", d.stats).
				AsDev().
				WithOptions(idOption("servidor", "ID del servidor")),
		},
		blacklistGroup,
	)

	client.CommandHandler.AddDevCommand(devGroup)
}
