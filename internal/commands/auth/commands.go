package auth

import (
	"fmt"

	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

func (m *module) help(ctx *discord.CommandContext) error {
	return ctx.ReplyEphemeralEmbed(helpEmbed())
}

// setup opens the panel text modal; the panel is posted on submit
func (m *module) setup(ctx *discord.CommandContext) error {
	cfg, err := m.engine.GuildConfig(ctx.Context(), ctx.Interaction.GuildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}

	return ctx.ShowModal(PanelSetupModalID, "Panel de autenticación", discordgo.TextInput{
		CustomID:    panelMessageInput,
		Label:       "Mensaje del panel",
		Style:       discordgo.TextInputParagraph,
		Placeholder: models.DefaultPanelMessage,
		Value:       cfg.PanelMessage,
		Required:    true,
		MaxLength:   2000,
	})
}

func (m *module) channel(ctx *discord.CommandContext) error {
	target := ctx.GetChannelOption("target")
	if target == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un canal.")
	}

	_, err := m.engine.UpdateConfig(ctx.Context(), ctx.Interaction.GuildID, func(cfg *models.GuildConfig) {
		cfg.NotificationChannelID = models.StringPtr(target.ID)
	})
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("✅ Las solicitudes llegarán a <#%s>.", target.ID))
}

// modal opens the question configuration modal
func (m *module) modal(ctx *discord.CommandContext) error {
	cfg, err := m.engine.GuildConfig(ctx.Context(), ctx.Interaction.GuildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ShowModal(QuestionConfigModal, "Preguntas del formulario", questionConfigInputs(cfg.Questions)...)
}

func (m *module) config(ctx *discord.CommandContext) error {
	cfg, err := m.engine.Store().GetConfig(ctx.Context(), ctx.Interaction.GuildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	if cfg == nil {
		return ctx.ReplyEphemeral("⚙️ Este servidor todavía no tiene configuración. Empieza con `/auth channel`.")
	}
	return ctx.ReplyEphemeralEmbed(configEmbed(cfg))
}

func (m *module) status(ctx *discord.CommandContext) error {
	guildID := ctx.Interaction.GuildID

	cfg, err := m.engine.GuildConfig(ctx.Context(), guildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	counts, err := m.engine.Stats(ctx.Context(), guildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}

	ping := fmt.Sprintf("%dms", ctx.Client.Ping().Milliseconds())
	return ctx.ReplyEphemeralEmbed(statusEmbed(cfg, counts, ping, discord.FormatDuration(ctx.Client.Uptime())))
}

func (m *module) dmNotification(ctx *discord.CommandContext) error {
	enable := ctx.GetBoolOption("enable")

	_, err := m.engine.UpdateConfig(ctx.Context(), ctx.Interaction.GuildID, func(cfg *models.GuildConfig) {
		cfg.DMNotificationEnabled = enable
	})
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral("✅ Notificaciones por MD: **" + enabledText(enable) + "**.")
}

func (m *module) history(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}

	apps, err := m.engine.History(ctx.Context(), user.ID, ctx.Interaction.GuildID, historyShown)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	if len(apps) == 0 {
		return ctx.ReplyEphemeral("📭 Ese usuario no tiene solicitudes en este servidor.")
	}
	return ctx.ReplyEphemeralEmbed(historyEmbed(user, apps))
}

func (m *module) blacklistAdd(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}

	entry, err := m.engine.AddToBlacklist(ctx.Context(), ctx.Interaction.GuildID, user.ID, ctx.User().ID, ctx.GetStringOption("reason"))
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("🚫 **%s** fue añadido a la lista negra.\n**Razón:** %s", user.String(), entry.ReasonOrDefault()))
}

func (m *module) blacklistRemove(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}

	if err := m.engine.RemoveFromBlacklist(ctx.Context(), ctx.Interaction.GuildID, user.ID); err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("✅ **%s** fue quitado de la lista negra.", user.String()))
}

func (m *module) blacklistList(ctx *discord.CommandContext) error {
	entries, err := m.engine.Blacklist(ctx.Context(), ctx.Interaction.GuildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	if len(entries) == 0 {
		return ctx.ReplyEphemeral("📭 La lista negra está vacía.")
	}
	return ctx.ReplyEphemeralEmbed(blacklistEmbed(entries))
}
