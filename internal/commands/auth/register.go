// Package auth provides the /auth command group and the buttons, selects and
// modals of the authentication workflow.
package auth

import (
	lifecycle "github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

type module struct {
	engine  *lifecycle.Engine
	surface *discord.Surface
}

func userOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    required,
	}
}

// RegisterAuthCommands registers /auth and every component handler it needs
func RegisterAuthCommands(client *discord.ExtendedClient, engine *lifecycle.Engine, surface *discord.Surface) {
	m := &module{engine: engine, surface: surface}
	const admin = discordgo.PermissionAdministrator

	blacklist := client.CommandHandler.BuildSubcommandGroup("auth", "blacklist", "Gestiona la lista negra", admin,
		discord.NewCommand("add", "Impide que un usuario solicite la autenticación", "auth", m.blacklistAdd).
			WithOptions(
				userOption("Usuario a bloquear", true),
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Razón del bloqueo",
				},
			),
		discord.NewCommand("remove", "Quita a un usuario de la lista negra", "auth", m.blacklistRemove).
			WithOptions(userOption("Usuario a desbloquear", true)),
		discord.NewCommand("list", "Muestra la lista negra", "auth", m.blacklistList),
	)

	group := client.CommandHandler.BuildCommandGroup("auth", "Sistema de autenticación", admin,
		[]*discord.Command{
			discord.NewCommand("help", "Muestra la ayuda del sistema", "auth", m.help),
			discord.NewCommand("setup", "Publica el panel de autenticación en este canal", "auth", m.setup),
			discord.NewCommand("channel", "Define el canal de notificaciones", "auth", m.channel).
				WithOptions(&discordgo.ApplicationCommandOption{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "target",
					Description:  "Canal donde llegan las solicitudes",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				}),
			discord.NewCommand("modal", "Configura las preguntas del formulario", "auth", m.modal),
			discord.NewCommand("config", "Muestra la configuración actual", "auth", m.config),
			discord.NewCommand("status", "Muestra el estado del sistema", "auth", m.status),
			discord.NewCommand("dm_notification", "Activa o desactiva el MD al aprobar", "auth", m.dmNotification).
				WithOptions(&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enable",
					Description: "Enviar MD al aprobar",
					Required:    true,
				}),
			discord.NewCommand("history", "Muestra el historial de un usuario", "auth", m.history).
				WithOptions(userOption("Usuario a consultar", true)),
		},
		blacklist,
	)
	client.CommandHandler.AddGlobalCommand(group)

	r := client.Components
	r.Handle(StartID, m.start)
	r.Handle(CancelID, m.cancel)
	r.Handle(ApplicationModalID, m.submit)
	r.Handle(PanelSetupModalID, m.panelSetup)
	r.Handle(QuestionConfigModal, m.questionConfig)
	r.HandlePrefix(notify.ApprovePrefix, m.approveButton)
	r.HandlePrefix(notify.RejectPrefix, m.rejectButton)
	r.HandlePrefix(RejectModalPrefix, m.rejectModal)
	r.HandlePrefix(RoleSelectPrefix, m.roleSelect)
}
