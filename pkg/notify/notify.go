// Package notify keeps the moderator-facing message of every application in
// step with its stored state. One message is posted when the application is
// submitted and later edited in place, never deleted or duplicated.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
	"github.com/bwmarrin/discordgo"
)

// Embed colors per status
const (
	ColorPending   = 0xFFFF00
	ColorApproved  = 0x00FF00
	ColorRejected  = 0xFF0000
	ColorCancelled = 0x808080
)

// Component ids carried by the posted message
const (
	ApprovePrefix = "auth_approve_"
	RejectPrefix  = "auth_reject_"
)

const (
	titlePending   = "Nueva solicitud de autenticación"
	titleApproved  = "Solicitud aprobada"
	titleRejected  = "Solicitud rechazada"
	titleCancelled = "Solicitud cancelada"
	footerCancel   = "El usuario canceló su solicitud"
	noAnswer       = "Ninguna"

	maxFieldName  = 256
	maxFieldValue = 1024
)

// Surface is the chat platform as seen by the synchronizer
type Surface interface {
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error)
	DirectMessage(ctx context.Context, userID string, msg *discordgo.MessageSend) error
	User(ctx context.Context, userID string) (*discordgo.User, error)
	GuildName(ctx context.Context, guildID string) (string, error)
	RoleName(ctx context.Context, guildID, roleID string) (string, error)
}

// SurfaceError wraps a failure of the chat platform
type SurfaceError struct {
	Op  string
	Err error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("surface %s: %v", e.Op, e.Err)
}

func (e *SurfaceError) Unwrap() error {
	return e.Err
}

// Outcome describes how an application left pending
type Outcome struct {
	Status      models.Status
	ProcessorID string
	RoleIDs     []string
	Reason      string
}

// Synchronizer renders applications onto a Surface
type Synchronizer struct {
	surface Surface
	now     func() time.Time
}

// NewSynchronizer creates a Synchronizer over surface
func NewSynchronizer(surface Surface) *Synchronizer {
	return &Synchronizer{surface: surface, now: time.Now}
}

// Publish posts the pending message for app and returns its id
func (s *Synchronizer) Publish(ctx context.Context, channelID string, app *models.AuthApplication, set []questions.Question) (string, error) {
	author := &discordgo.MessageEmbedAuthor{Name: app.UserID}
	if user, err := s.surface.User(ctx, app.UserID); err == nil && user != nil {
		author.Name = user.String()
		author.IconURL = user.AvatarURL("")
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "ID de usuario", Value: app.UserID, Inline: true},
		{Name: "Cuenta creada", Value: accountCreated(app.UserID), Inline: true},
	}
	for i, q := range set {
		answer := ""
		if i < len(app.Answers) {
			answer = strings.TrimSpace(app.Answers[i])
		}
		if answer == "" {
			answer = noAnswer
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  Truncate(q.Text, maxFieldName),
			Value: Truncate(answer, maxFieldValue),
		})
	}

	msg := &discordgo.MessageSend{
		Content: fmt.Sprintf("Nueva solicitud de <@%s>", app.UserID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:     titlePending,
			Author:    author,
			Fields:    fields,
			Color:     ColorPending,
			Timestamp: s.now().Format(time.RFC3339),
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Aprobar",
					Style:    discordgo.SuccessButton,
					CustomID: ApprovePrefix + app.UserID,
					Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
				},
				discordgo.Button{
					Label:    "Rechazar",
					Style:    discordgo.DangerButton,
					CustomID: RejectPrefix + app.UserID,
					Emoji:    &discordgo.ComponentEmoji{Name: "❌"},
				},
			}},
		},
	}

	sent, err := s.surface.SendMessage(ctx, channelID, msg)
	if err != nil {
		return "", &SurfaceError{Op: "publish", Err: err}
	}
	return sent.ID, nil
}

// Reflect rewrites the posted message to show outcome and drops its buttons
func (s *Synchronizer) Reflect(ctx context.Context, channelID, messageID string, outcome Outcome) error {
	msg, err := s.surface.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return &SurfaceError{Op: "fetch", Err: err}
	}

	embed := &discordgo.MessageEmbed{}
	if len(msg.Embeds) > 0 && msg.Embeds[0] != nil {
		copied := *msg.Embeds[0]
		copied.Fields = append([]*discordgo.MessageEmbedField(nil), msg.Embeds[0].Fields...)
		embed = &copied
	}

	switch outcome.Status {
	case models.StatusApproved:
		embed.Title = titleApproved
		embed.Color = ColorApproved
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Roles otorgados", Value: roleMentions(outcome.RoleIDs)},
			&discordgo.MessageEmbedField{Name: "Aprobado por", Value: s.userTag(ctx, outcome.ProcessorID), Inline: true},
		)
	case models.StatusRejected:
		embed.Title = titleRejected
		embed.Color = ColorRejected
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Razón del rechazo", Value: Truncate(outcome.Reason, maxFieldValue)},
			&discordgo.MessageEmbedField{Name: "Rechazado por", Value: s.userTag(ctx, outcome.ProcessorID), Inline: true},
		)
	case models.StatusCancelled:
		embed.Title = titleCancelled
		embed.Color = ColorCancelled
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footerCancel}
	default:
		return &SurfaceError{Op: "reflect", Err: fmt.Errorf("estado sin representación: %s", outcome.Status)}
	}

	edit := discordgo.NewMessageEdit(channelID, messageID).
		SetEmbeds([]*discordgo.MessageEmbed{embed})
	edit.Components = &[]discordgo.MessageComponent{}

	if _, err := s.surface.EditMessage(ctx, edit); err != nil {
		return &SurfaceError{Op: "edit", Err: err}
	}
	return nil
}

// NotifyApplicant sends the approval DM
func (s *Synchronizer) NotifyApplicant(ctx context.Context, userID, guildID string, roleIDs []string) error {
	guildName, err := s.surface.GuildName(ctx, guildID)
	if err != nil || guildName == "" {
		guildName = "el servidor"
	}

	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		name, err := s.surface.RoleName(ctx, guildID, id)
		if err != nil || name == "" {
			name = id
		}
		names = append(names, name)
	}

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "¡Tu solicitud fue aprobada!",
			Description: fmt.Sprintf("Tu solicitud de autenticación en **%s** ha sido aprobada.", guildName),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Roles otorgados", Value: strings.Join(names, ", ")},
			},
			Color:     ColorApproved,
			Timestamp: s.now().Format(time.RFC3339),
		}},
	}

	if err := s.surface.DirectMessage(ctx, userID, msg); err != nil {
		return &SurfaceError{Op: "direct message", Err: err}
	}
	return nil
}

func (s *Synchronizer) userTag(ctx context.Context, userID string) string {
	if user, err := s.surface.User(ctx, userID); err == nil && user != nil {
		return user.String()
	}
	return fmt.Sprintf("<@%s>", userID)
}

func accountCreated(userID string) string {
	ts, err := discordgo.SnowflakeTimestamp(userID)
	if err != nil {
		return noAnswer
	}
	return fmt.Sprintf("<t:%d:R>", ts.Unix())
}

func roleMentions(ids []string) string {
	if len(ids) == 0 {
		return noAnswer
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@&" + id + ">"
	}
	return strings.Join(mentions, ", ")
}

// Truncate cuts s to max runes, marking the cut with an ellipsis
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
