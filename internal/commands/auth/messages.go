package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	lifecycle "github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/guard"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/notify"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
	"github.com/bwmarrin/discordgo"
)

// Custom ids. Panels already posted in guilds carry these, so they never change.
const (
	StartID             = "auth_start"
	CancelID            = "auth_cancel_application"
	ApplicationModalID  = "auth_application_modal"
	RejectModalPrefix   = "auth_reject_modal_"
	RoleSelectPrefix    = "auth_role_select_"
	PanelSetupModalID   = "auth_panel_setup_modal"
	QuestionConfigModal = "auth_modal_config"

	answerInputPrefix  = "q_"
	questionInputFmt   = "question_%d"
	rejectReasonInput  = "reject_reason"
	panelMessageInput  = "panel_message"
	maxSelectableRoles = 10
	historyShown       = 10
)

const genericError = "❌ Ocurrió un error inesperado. Inténtalo de nuevo más tarde."

// failure turns err into the text shown to the user. Expected outcomes are
// answered silently; anything else is logged.
func failure(err error) string {
	if !lifecycle.IsUserFacing(err) {
		var se *notify.SurfaceError
		if errors.As(err, &se) {
			logger.Warn("Fallo de Discord: "+err.Error(), "Auth")
		} else {
			logger.Error("Error en autenticación: "+err.Error(), "Auth")
		}
	}
	return errorMessage(err)
}

// errorMessage maps an error to its user-facing text
func errorMessage(err error) string {
	var he *guard.HierarchyError
	if errors.As(err, &he) {
		if he.IsBot() {
			return fmt.Sprintf("❌ No puedo gestionar <@&%s>: está al nivel o por encima de mi rol más alto.", he.RoleID)
		}
		return fmt.Sprintf("❌ No puedes gestionar <@&%s>: está al nivel o por encima de tu rol más alto.", he.RoleID)
	}

	switch {
	case errors.Is(err, lifecycle.ErrBlacklisted):
		return "🚫 No puedes solicitar la autenticación en este servidor."
	case errors.Is(err, lifecycle.ErrDuplicatePending):
		return "⏳ Ya tienes una solicitud pendiente. Espera a que un moderador la revise."
	case errors.Is(err, lifecycle.ErrNotConfigured):
		return "⚙️ El canal de notificaciones no está configurado. Avisa a un administrador."
	case errors.Is(err, lifecycle.ErrNoQuestions):
		return "⚙️ No hay preguntas configuradas. Avisa a un administrador."
	case errors.Is(err, lifecycle.ErrNoPendingApplication):
		return "❌ No hay ninguna solicitud pendiente."
	case errors.Is(err, lifecycle.ErrReasonRequired):
		return "❌ Debes indicar una razón."
	case errors.Is(err, lifecycle.ErrNoRoles):
		return "❌ Debes seleccionar al menos un rol."
	case errors.Is(err, lifecycle.ErrNotBlacklisted):
		return "❌ Ese usuario no está en la lista negra."
	case errors.Is(err, database.ErrUnsupported):
		return "❌ Esta operación no está disponible con el almacenamiento actual."
	}
	return genericError
}

// targetOf extracts the user id following prefix in a custom id
func targetOf(customID, prefix string) (string, bool) {
	id := strings.TrimPrefix(customID, prefix)
	if id == customID || id == "" || strings.Contains(id, "_") {
		return "", false
	}
	return id, true
}

// RoleSelectID addresses the role picker to an application and its message
func RoleSelectID(userID, messageID string) string {
	return RoleSelectPrefix + userID + "_" + messageID
}

// parseRoleSelect reverses RoleSelectID
func parseRoleSelect(customID string) (userID, messageID string, ok bool) {
	rest := strings.TrimPrefix(customID, RoleSelectPrefix)
	if rest == customID {
		return "", "", false
	}
	parts := strings.Split(rest, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// panelComponents are the buttons under the public panel
func panelComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Solicitar autenticación",
				Style:    discordgo.PrimaryButton,
				CustomID: StartID,
			},
			discordgo.Button{
				Label:    "Cancelar solicitud",
				Style:    discordgo.SecondaryButton,
				CustomID: CancelID,
			},
		}},
	}
}

// applicationInputs renders one text input per question
func applicationInputs(set []questions.Question) []discordgo.TextInput {
	if len(set) > questions.MaxQuestions {
		set = set[:questions.MaxQuestions]
	}
	inputs := make([]discordgo.TextInput, 0, len(set))
	for i, q := range set {
		inputs = append(inputs, discordgo.TextInput{
			CustomID: fmt.Sprintf("%s%d", answerInputPrefix, i),
			Label:    q.Label(),
			Style:    discordgo.TextInputParagraph,
			Required: !q.Optional,
		})
	}
	return inputs
}

// collectAnswers reads q_0, q_1, ... in order until one is missing
func collectAnswers(values map[string]string) []string {
	answers := make([]string, 0, questions.MaxQuestions)
	for i := 0; i < questions.MaxQuestions; i++ {
		v, ok := values[fmt.Sprintf("%s%d", answerInputPrefix, i)]
		if !ok {
			break
		}
		answers = append(answers, v)
	}
	return answers
}

// questionConfigInputs renders the five question slots, prefilled with current
func questionConfigInputs(current []questions.Question) []discordgo.TextInput {
	inputs := make([]discordgo.TextInput, 0, questions.MaxQuestions)
	for i := 1; i <= questions.MaxQuestions; i++ {
		in := discordgo.TextInput{
			CustomID:  fmt.Sprintf(questionInputFmt, i),
			Label:     fmt.Sprintf("Pregunta %d", i),
			Style:     discordgo.TextInputShort,
			Required:  false,
			MaxLength: questions.MaxLabelLength,
		}
		if i == 1 {
			in.Placeholder = "Empieza con (*?) para que sea opcional"
		}
		if i <= len(current) {
			in.Value = current[i-1].Raw()
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// questionsFromModal reads question_1..5 in slot order
func questionsFromModal(values map[string]string) []questions.Question {
	raw := make([]string, 0, questions.MaxQuestions)
	for i := 1; i <= questions.MaxQuestions; i++ {
		raw = append(raw, values[fmt.Sprintf(questionInputFmt, i)])
	}
	return questions.FromInput(raw)
}

func channelMention(id *string) string {
	if id == nil || *id == "" {
		return "No configurado"
	}
	return "<#" + *id + ">"
}

func enabledText(v bool) string {
	if v {
		return "Activadas"
	}
	return "Desactivadas"
}

func questionList(set []questions.Question) string {
	if len(set) == 0 {
		return "No configurado"
	}
	lines := make([]string, 0, len(set))
	for i, q := range set {
		line := fmt.Sprintf("%d. %s", i+1, q.Text)
		if q.Optional {
			line += " *(opcional)*"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// configEmbed summarizes a guild configuration
func configEmbed(cfg *models.GuildConfig) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "⚙️ Configuración de autenticación",
		Color: 0x00FF00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Canal de notificaciones", Value: channelMention(cfg.NotificationChannelID)},
			{Name: "Panel", Value: channelMention(cfg.PanelChannelID)},
			{Name: "Preguntas", Value: questionList(cfg.Questions)},
			{Name: "Notificaciones por MD", Value: enabledText(cfg.DMNotificationEnabled)},
		},
	}
}

// Discord embed limits, in characters
const (
	fieldValueLimit = 1024
	embedLimit      = 6000
)

// historyEmbed lists apps, newest first. Long notes are cut to fit a field and
// the list stops before the embed would pass Discord's total size.
func historyEmbed(user *discordgo.User, apps []*models.AuthApplication) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📜 Historial de " + user.String(),
		Color: 0x0099FF,
	}
	budget := embedLimit - utf8.RuneCountInString(embed.Title) - 64
	for i, app := range apps {
		value := "Estado: " + string(app.Status)
		if app.ProcessorID != nil {
			value += "\nProcesado por: <@" + *app.ProcessorID + ">"
		}
		if app.Notes != nil {
			value += "\nNotas: " + *app.Notes
		}
		field := &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s <t:%d:f>", app.Status.Emoji(), app.AppliedAt),
			Value: notify.Truncate(value, fieldValueLimit),
		}

		size := utf8.RuneCountInString(field.Name) + utf8.RuneCountInString(field.Value)
		if size > budget {
			embed.Footer = &discordgo.MessageEmbedFooter{
				Text: fmt.Sprintf("Mostrando %d de %d solicitudes", i, len(apps)),
			}
			break
		}
		budget -= size
		embed.Fields = append(embed.Fields, field)
	}
	return embed
}

// blacklistEmbed lists blocked users with their reasons
func blacklistEmbed(entries []*models.BlacklistEntry) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("<@%s> - %s", e.UserID, e.ReasonOrDefault()))
	}
	description := strings.Join(lines, "\n")
	if r := []rune(description); len(r) > 4096 {
		description = string(r[:4096])
	}
	return &discordgo.MessageEmbed{
		Title:       "🚫 Lista negra",
		Description: description,
		Color:       0xFF0000,
	}
}

// statusEmbed is the /auth status dashboard
func statusEmbed(cfg *models.GuildConfig, counts models.StatusCounts, ping, uptime string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 Estado de autenticación",
		Color: 0x0099FF,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Solicitudes",
				Value: fmt.Sprintf("⏳ Pendientes: %d\n✅ Aprobadas: %d\n❌ Rechazadas: %d\n🚫 Canceladas: %d",
					counts.Get(models.StatusPending),
					counts.Get(models.StatusApproved),
					counts.Get(models.StatusRejected),
					counts.Get(models.StatusCancelled),
				),
			},
			{
				Name: "Configuración",
				Value: fmt.Sprintf("**Canal de notificaciones:** %s\n**Panel:** %s\n**MD:** %s",
					channelMention(cfg.NotificationChannelID),
					channelMention(cfg.PanelChannelID),
					enabledText(cfg.DMNotificationEnabled),
				),
				Inline: true,
			},
			{
				Name:   "Sistema",
				Value:  fmt.Sprintf("**Ping:** %s\n**Uptime:** %s", ping, uptime),
				Inline: true,
			},
		},
	}
}

// helpEmbed documents the /auth command tree
func helpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📖 Ayuda de autenticación",
		Color: 0x5865F2,
		Description: "• `/auth setup` - Publica el panel en este canal\n" +
			"• `/auth channel <canal>` - Canal donde llegan las solicitudes\n" +
			"• `/auth modal` - Configura hasta 5 preguntas\n" +
			"• `/auth config` - Muestra la configuración\n" +
			"• `/auth status` - Estadísticas de solicitudes\n" +
			"• `/auth dm_notification <activar>` - MD al aprobar\n" +
			"• `/auth history <usuario>` - Últimas solicitudes de un usuario\n" +
			"• `/auth blacklist add|remove|list` - Gestiona la lista negra\n" +
			"• `/manage_role <usuario> <rol> <acción>` - Da o quita un rol",
	}
}
