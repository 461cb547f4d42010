package dev

import (
	"errors"
	"fmt"
	"time"

	lifecycle "github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

func (d *dev) backup(ctx *discord.CommandContext) error {
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}

	path, err := database.Backup(ctx.Context(), d.engine.Store(), d.backupDir, time.Now())
	if errors.Is(err, database.ErrUnsupported) {
		return ctx.EditReply("⚠️ El driver actual no admite respaldos desde el bot.")
	}
	if err != nil {
		logger.Error("Error creando respaldo: "+err.Error(), "Dev")
		return ctx.EditReply("❌ No se pudo crear el respaldo.")
	}
	return ctx.EditReply("✅ Respaldo creado: `" + path + "`")
}

func (d *dev) stats(ctx *discord.CommandContext) error {
	guildID := ctx.GetStringOption("servidor")
	counts, err := d.engine.Stats(ctx.Context(), guildID)
	if err != nil {
		logger.Error("Error leyendo estadísticas: "+err.Error(), "Dev")
		return ctx.ReplyEphemeral("❌ No se pudieron leer las estadísticas.")
	}
	return ctx.ReplyEphemeralEmbed(statsEmbed(guildID, counts))
}

func statsEmbed(guildID string, counts models.StatusCounts) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   s.Emoji() + " " + string(s),
			Value:  fmt.Sprintf("%d", counts.Get(s)),
			Inline: true,
		})
	}
	return &discordgo.MessageEmbed{
		Title:     "📊 Solicitudes de " + guildID,
		Color:     0x5865F2,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (d *dev) blacklistAdd(ctx *discord.CommandContext) error {
	guildID := ctx.GetStringOption("servidor")
	userID := ctx.GetStringOption("usuario")

	entry, err := d.engine.AddToBlacklist(ctx.Context(), guildID, userID, ctx.User().ID, ctx.GetStringOption("razon"))
	if err != nil {
		logger.Error("Error añadiendo a la lista negra: "+err.Error(), "Dev")
		return ctx.ReplyEphemeral("❌ No se pudo actualizar la lista negra.")
	}

	logger.Warn(fmt.Sprintf("%s bloqueó a %s en %s: %s", ctx.User().ID, userID, guildID, entry.ReasonOrDefault()), "Dev")
	return ctx.ReplyEphemeral(fmt.Sprintf("🚫 `%s` bloqueado en `%s`.\n**Razón:** %s", userID, guildID, entry.ReasonOrDefault()))
}

func (d *dev) blacklistRemove(ctx *discord.CommandContext) error {
	guildID := ctx.GetStringOption("servidor")
	userID := ctx.GetStringOption("usuario")

	err := d.engine.RemoveFromBlacklist(ctx.Context(), guildID, userID)
	if errors.Is(err, lifecycle.ErrNotBlacklisted) {
		return ctx.ReplyEphemeral(fmt.Sprintf("ℹ️ `%s` no estaba bloqueado en `%s`.", userID, guildID))
	}
	if err != nil {
		logger.Error("Error quitando de la lista negra: "+err.Error(), "Dev")
		return ctx.ReplyEphemeral("❌ No se pudo actualizar la lista negra.")
	}
	return ctx.ReplyEphemeral(fmt.Sprintf("✅ `%s` desbloqueado en `%s`.", userID, guildID))
}
