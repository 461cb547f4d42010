package auth

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/notify"
	"github.com/bwmarrin/discordgo"
)

// start is the panel button: it shows the questionnaire
func (m *module) start(ctx *discord.CommandContext) error {
	set, err := m.engine.Prepare(ctx.Context(), ctx.User().ID, ctx.Interaction.GuildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ShowModal(ApplicationModalID, "Solicitud de autenticación", applicationInputs(set)...)
}

// submit stores the answers of the questionnaire
func (m *module) submit(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	answers := collectAnswers(ctx.ModalValues())
	if _, err := m.engine.Submit(ctx.Context(), ctx.User().ID, ctx.Interaction.GuildID, answers); err != nil {
		return ctx.EditReply(failure(err))
	}
	return ctx.EditReply("✅ Tu solicitud fue enviada. Un moderador la revisará pronto.")
}

func (m *module) cancel(ctx *discord.CommandContext) error {
	if err := m.engine.Cancel(ctx.Context(), ctx.User().ID, ctx.Interaction.GuildID); err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral("🚫 Tu solicitud fue cancelada.")
}

// approveButton asks the moderator which roles to grant
func (m *module) approveButton(ctx *discord.CommandContext) error {
	userID, ok := targetOf(ctx.CustomID(), notify.ApprovePrefix)
	if !ok {
		return ctx.ReplyEphemeral(genericError)
	}

	minRoles := 1
	picker := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.RoleSelectMenu,
			CustomID:    RoleSelectID(userID, ctx.MessageID()),
			Placeholder: "Selecciona los roles a otorgar",
			MinValues:   &minRoles,
			MaxValues:   maxSelectableRoles,
		},
	}}
	return ctx.ReplyComponents(fmt.Sprintf("Selecciona los roles para <@%s>:", userID), picker)
}

// roleSelect approves with the picked roles
func (m *module) roleSelect(ctx *discord.CommandContext) error {
	if err := ctx.UpdateMessage("⏳ Procesando...", nil); err != nil {
		return err
	}

	userID, messageID, ok := parseRoleSelect(ctx.CustomID())
	if !ok {
		return ctx.EditReply("❌ No se encontró la solicitud asociada.")
	}

	roles := ctx.Values()
	err := m.engine.Approve(ctx.Context(), userID, ctx.Interaction.GuildID, ctx.User().ID, roles)
	if err != nil {
		return ctx.EditReply(failure(err))
	}

	logger.Info(fmt.Sprintf("Solicitud de %s aprobada por %s (mensaje %s)", userID, ctx.User().ID, messageID), "Auth")
	return ctx.EditReply(fmt.Sprintf("✅ Solicitud aprobada. Se otorgaron %d rol(es).", len(roles)))
}

// rejectButton asks for the mandatory reason
func (m *module) rejectButton(ctx *discord.CommandContext) error {
	userID, ok := targetOf(ctx.CustomID(), notify.RejectPrefix)
	if !ok {
		return ctx.ReplyEphemeral(genericError)
	}

	return ctx.ShowModal(RejectModalPrefix+userID, "Rechazar solicitud", discordgo.TextInput{
		CustomID:  rejectReasonInput,
		Label:     "Razón del rechazo",
		Style:     discordgo.TextInputParagraph,
		Required:  true,
		MaxLength: fieldValueLimit,
	})
}

func (m *module) rejectModal(ctx *discord.CommandContext) error {
	userID, ok := targetOf(ctx.CustomID(), RejectModalPrefix)
	if !ok {
		return ctx.ReplyEphemeral(genericError)
	}

	reason := ctx.ModalValues()[rejectReasonInput]
	if err := m.engine.Reject(ctx.Context(), userID, ctx.Interaction.GuildID, ctx.User().ID, reason); err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral("❌ Solicitud rechazada.")
}

// panelSetup replaces the guild's panel with a new one in this channel
func (m *module) panelSetup(ctx *discord.CommandContext) error {
	c := ctx.Context()
	guildID := ctx.Interaction.GuildID

	text := strings.TrimSpace(ctx.ModalValues()[panelMessageInput])
	if text == "" {
		text = models.DefaultPanelMessage
	}

	cfg, err := m.engine.GuildConfig(c, guildID)
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	if _, ok := cfg.NotificationChannel(); !ok {
		return ctx.ReplyEphemeral("⚙️ Configura primero el canal de notificaciones con `/auth channel`.")
	}

	if channelID, messageID, ok := cfg.Panel(); ok {
		if err := m.surface.DeleteMessage(c, channelID, messageID); err != nil {
			logger.Warn("No se pudo borrar el panel anterior: "+err.Error(), "Auth")
		}
	}

	msg, err := m.surface.SendMessage(c, ctx.Interaction.ChannelID, &discordgo.MessageSend{
		Content:    text,
		Components: panelComponents(),
	})
	if err != nil {
		logger.Warn("No se pudo publicar el panel: "+err.Error(), "Auth")
		return ctx.ReplyEphemeral("❌ No pude publicar el panel. Revisa mis permisos en este canal.")
	}

	_, err = m.engine.UpdateConfig(c, guildID, func(cfg *models.GuildConfig) {
		cfg.PanelChannelID = models.StringPtr(msg.ChannelID)
		cfg.PanelMessageID = models.StringPtr(msg.ID)
		cfg.PanelMessage = text
	})
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral("✅ Panel publicado.")
}

// questionConfig saves the questions typed in the configuration modal
func (m *module) questionConfig(ctx *discord.CommandContext) error {
	set := questionsFromModal(ctx.ModalValues())

	_, err := m.engine.UpdateConfig(ctx.Context(), ctx.Interaction.GuildID, func(cfg *models.GuildConfig) {
		cfg.Questions = set
	})
	if err != nil {
		return ctx.ReplyEphemeral(failure(err))
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("✅ Se guardaron %d pregunta(s).", len(set)))
}
