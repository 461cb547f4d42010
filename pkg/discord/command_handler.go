// Package discord provides the command handler for building and syncing commands.
package discord

import (
	"fmt"

	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler collects application commands and pushes them to Discord
type CommandHandler struct {
	client           *ExtendedClient
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:           client,
		slashCommands:    make([]*discordgo.ApplicationCommand, 0),
		slashCommandsDev: make([]*discordgo.ApplicationCommand, 0),
	}
}

// RegisterCommand adds a top-level command
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)

	appCmd := cmd.ToApplicationCommand()
	if cmd.IsDev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, appCmd)
	} else {
		ch.slashCommands = append(ch.slashCommands, appCmd)
	}

	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

func subcommandOption(cmd *Command) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        cmd.Name,
		Description: cmd.Description,
		Options:     cmd.Options,
	}
}

// BuildCommandGroup creates a command with subcommands and subcommand groups.
// Subcommands are stored under "name.sub"; groups must already have been
// built with BuildSubcommandGroup.
func (ch *CommandHandler) BuildCommandGroup(name, description string, perms int64, subcommands []*Command, groups ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands)+len(groups))

	for _, cmd := range subcommands {
		if cmd.UserPermissions == 0 {
			cmd.UserPermissions = perms
		}
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)
		options = append(options, subcommandOption(cmd))
	}
	options = append(options, groups...)

	dm := false
	appCmd := &discordgo.ApplicationCommand{
		Name:         name,
		Description:  description,
		Options:      options,
		DMPermission: &dm,
	}
	if perms != 0 {
		appCmd.DefaultMemberPermissions = &perms
	}
	return appCmd
}

// BuildSubcommandGroup creates a subcommand group stored under "group.name.sub"
func (ch *CommandHandler) BuildSubcommandGroup(groupName, name, description string, perms int64, subcommands ...*Command) *discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		if cmd.UserPermissions == 0 {
			cmd.UserPermissions = perms
		}
		ch.client.Commands.Set(groupName+"."+name+"."+cmd.Name, cmd)
		options = append(options, subcommandOption(cmd))
	}

	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// AddGlobalCommand adds a command to the global command list
func (ch *CommandHandler) AddGlobalCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommands = append(ch.slashCommands, cmd)
}

// AddDevCommand adds a command to the dev command list
func (ch *CommandHandler) AddDevCommand(cmd *discordgo.ApplicationCommand) {
	ch.slashCommandsDev = append(ch.slashCommandsDev, cmd)
}

// GlobalCommands returns the commands that will be synced globally
func (ch *CommandHandler) GlobalCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommands
}

// DevCommands returns the commands synced to the dev guild
func (ch *CommandHandler) DevCommands() []*discordgo.ApplicationCommand {
	return ch.slashCommandsDev
}

// RegisterCommands replaces the application's commands with the collected
// ones. Global commands go everywhere; dev commands only to DevGuildID.
func (ch *CommandHandler) RegisterCommands() {
	cfg := config.Get()
	appID := ch.client.Session.State.User.ID

	logger.Info("🔄 Sincronizando comandos globales...", "CommandHandler")
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, "", ch.slashCommands); err != nil {
		logger.Error("Error sincronizando comandos globales: "+err.Error(), "CommandHandler")
	} else {
		logger.Success("✅ Comandos globales sincronizados.", "CommandHandler")
	}

	if cfg == nil || cfg.DevGuildID == "" || len(ch.slashCommandsDev) == 0 {
		return
	}

	logger.Info("🔄 Registrando comandos de desarrollo en el servidor "+cfg.DevGuildID+"...", "CommandHandler")
	if _, err := ch.client.Session.ApplicationCommandBulkOverwrite(appID, cfg.DevGuildID, ch.slashCommandsDev); err != nil {
		logger.Error("Error registrando comandos de desarrollo: "+err.Error(), "CommandHandler")
		return
	}
	logger.Success("✅ Comandos de desarrollo registrados.", "CommandHandler")
}

// UnregisterCommands removes every command of the application in guildID,
// or every global command when guildID is empty
func (ch *CommandHandler) UnregisterCommands(guildID string) error {
	appID := ch.client.Session.State.User.ID
	commands, err := ch.client.Session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := ch.client.Session.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			logger.Error("Error eliminando comando "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success(fmt.Sprintf("%d comandos eliminados.", len(commands)), "CommandHandler")
	return nil
}
