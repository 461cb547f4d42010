// Package commands wires every command category into the client.
// Commands are organized in subdirectories by category (auth, utils, ...).
package commands

import (
	"github.com/PancyStudios/GuildAuthBot/internal/commands/auth"
	"github.com/PancyStudios/GuildAuthBot/internal/commands/dev"
	"github.com/PancyStudios/GuildAuthBot/internal/commands/managerole"
	"github.com/PancyStudios/GuildAuthBot/internal/commands/utils"
	lifecycle "github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
)

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, engine *lifecycle.Engine, surface *discord.Surface, roles *discord.RoleProvider, store database.Store, cfg *config.Config) {
	// /auth ... and the panel/notification components
	auth.RegisterAuthCommands(client, engine, surface)

	// /manage_role
	managerole.RegisterManageRoleCommand(client, engine, roles)

	// /utils ping, status, stats, help
	utils.RegisterUtilsCommands(client, store)

	// /dev backup, stats, blacklist (dev guild only)
	dev.Register(client, engine, cfg)
}
