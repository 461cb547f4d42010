// Package events provides event handlers for guild (server) events
package events

import (
	"context"
	"fmt"
	"time"

	lifecycle "github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const eventTimeout = 10 * time.Second

type guildEvents struct {
	engine *lifecycle.Engine
}

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient, engine *lifecycle.Engine) {
	g := &guildEvents{engine: engine}
	client.EventHandler.OnGuildCreate(onGuildCreate)
	client.EventHandler.OnGuildDelete(onGuildDelete)
	client.EventHandler.OnChannelDelete(g.onChannelDelete)
}

// onGuildCreate is called when the bot joins a server. GuildCreate is also
// replayed for every guild on connect, so only fresh joins get the welcome.
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.JoinedAt.Before(time.Now().Add(-10 * time.Second)) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Miembros: %d | Canales: %d", g.MemberCount, len(g.Channels)), "Guild")

	if g.SystemChannelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed()); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🎉",
		Description: "Hola, soy **GuildAuthBot**. Reviso las solicitudes de acceso a este servidor.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "1️⃣ Canal", Value: "`/auth channel` define dónde llegan las solicitudes", Inline: true},
			{Name: "2️⃣ Preguntas", Value: "`/auth modal` configura el formulario", Inline: true},
			{Name: "3️⃣ Panel", Value: "`/auth setup` publica el botón de solicitud", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Usa /auth help para más información"},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// onGuildDelete is called when the bot is removed from a server
func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("⚠️ Servidor no disponible: %s", g.ID), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
}

// onChannelDelete forgets the notification channel or panel when they are deleted
func (ge *guildEvents) onChannelDelete(s *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	cfg, err := ge.engine.Store().GetConfig(ctx, c.GuildID)
	if err != nil {
		logger.Error("Error leyendo configuración: "+err.Error(), "Guild")
		return
	}
	if !forgetChannel(cfg, c.ID) {
		return
	}

	_, err = ge.engine.UpdateConfig(ctx, c.GuildID, func(cur *models.GuildConfig) {
		forgetChannel(cur, c.ID)
	})
	if err != nil {
		logger.Error("Error actualizando configuración: "+err.Error(), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("🗑️ Canal %s eliminado, configuración de %s actualizada", c.ID, c.GuildID), "Guild")
}

// forgetChannel clears every reference to channelID and reports whether any
// was found
func forgetChannel(cfg *models.GuildConfig, channelID string) bool {
	if cfg == nil {
		return false
	}
	changed := false
	if id, ok := cfg.NotificationChannel(); ok && id == channelID {
		cfg.NotificationChannelID = nil
		changed = true
	}
	if id, _, ok := cfg.Panel(); ok && id == channelID {
		cfg.PanelChannelID = nil
		cfg.PanelMessageID = nil
		changed = true
	}
	return changed
}
