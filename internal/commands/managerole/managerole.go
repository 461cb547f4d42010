// Package managerole provides /manage_role, a manual grant or revoke that goes
// through the same hierarchy guard as approvals.
package managerole

import (
	"context"
	"errors"
	"fmt"

	lifecycle "github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/guard"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// PermissionSource resolves the actor's permissions for the gate
type PermissionSource interface {
	Permissions(ctx context.Context, member *discordgo.Member, channelID string) guard.Permissions
}

type handler struct {
	engine *lifecycle.Engine
	perms  PermissionSource
}

// RegisterManageRoleCommand registers /manage_role
func RegisterManageRoleCommand(client *discord.ExtendedClient, engine *lifecycle.Engine, perms PermissionSource) {
	h := &handler{engine: engine, perms: perms}

	cmd := discord.NewCommand("manage_role", "Da o quita un rol a un usuario", "auth", h.run).
		WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Usuario objetivo",
				Required:    true,
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "role",
				Description: "Rol a gestionar",
				Required:    true,
			},
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "action",
				Description: "Dar o quitar",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Dar", Value: string(lifecycle.RoleAdd)},
					{Name: "Quitar", Value: string(lifecycle.RoleRemove)},
				},
			},
		)
	client.CommandHandler.RegisterCommand(cmd)
	client.CommandHandler.AddGlobalCommand(cmd.ToApplicationCommand())
}

// parseAction accepts only the two declared choices
func parseAction(raw string) (lifecycle.RoleAction, bool) {
	switch lifecycle.RoleAction(raw) {
	case lifecycle.RoleAdd:
		return lifecycle.RoleAdd, true
	case lifecycle.RoleRemove:
		return lifecycle.RoleRemove, true
	}
	return "", false
}

func (h *handler) allowed(ctx *discord.CommandContext) (bool, error) {
	if ctx.Member() == nil {
		return false, nil
	}
	cfg, err := h.engine.GuildConfig(ctx.Context(), ctx.Interaction.GuildID)
	if err != nil {
		return false, err
	}
	channelID, _ := cfg.NotificationChannel()
	return guard.CanManage(h.perms.Permissions(ctx.Context(), ctx.Member(), channelID)), nil
}

func (h *handler) run(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("user")
	roleID := roleOptionID(ctx.GetOption("role"))
	action, ok := parseAction(ctx.GetStringOption("action"))
	if user == nil || roleID == "" || !ok {
		return ctx.ReplyEphemeral("❌ Opciones inválidas.")
	}

	allowed, err := h.allowed(ctx)
	if err != nil {
		return ctx.ReplyEphemeral(reply(err))
	}
	if !allowed {
		return ctx.ReplyEphemeral("🚫 No tienes permiso para usar este comando.")
	}

	err = h.engine.ManageRole(ctx.Context(), ctx.Interaction.GuildID, ctx.User().ID, user.ID, roleID, action)
	if err != nil {
		return ctx.ReplyEphemeral(reply(err))
	}

	if action == lifecycle.RoleAdd {
		return ctx.ReplyEphemeral(fmt.Sprintf("✅ Se otorgó <@&%s> a <@%s>.", roleID, user.ID))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("✅ Se quitó <@&%s> a <@%s>.", roleID, user.ID))
}

// roleOptionID reads the snowflake of a role option without resolving it
func roleOptionID(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	if opt == nil {
		return ""
	}
	id, _ := opt.Value.(string)
	return id
}

// reply maps err to the text shown to the moderator
func reply(err error) string {
	var he *guard.HierarchyError
	if errors.As(err, &he) {
		if he.IsBot() {
			return fmt.Sprintf("❌ No puedo gestionar <@&%s>: está al nivel o por encima de mi rol más alto.", he.RoleID)
		}
		return fmt.Sprintf("❌ No puedes gestionar <@&%s>: está al nivel o por encima de tu rol más alto.", he.RoleID)
	}
	logger.Error("Error en manage_role: "+err.Error(), "ManageRole")
	return "❌ No se pudo gestionar el rol."
}
