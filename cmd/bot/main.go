// Package main is the entry point for GuildAuthBot.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/GuildAuthBot/internal/bridge"
	"github.com/PancyStudios/GuildAuthBot/internal/commands"
	"github.com/PancyStudios/GuildAuthBot/internal/events"
	"github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/errors"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/mqtt"
	"github.com/PancyStudios/GuildAuthBot/pkg/notify"
	"github.com/PancyStudios/GuildAuthBot/pkg/web"
)

const connectTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System("Iniciando GuildAuthBot...", "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	errors.Init(cfg.ErrorWebhook, func() {
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})

	// Open the store
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	store, err := database.Open(ctx, cfg)
	cancel()
	if err != nil {
		logger.Critical(fmt.Sprintf("Error abriendo la base de datos (%s): %v", cfg.StoreDriver, err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Error cerrando la base de datos: "+err.Error(), "Main")
		}
	}()
	logger.Success(fmt.Sprintf("Base de datos lista (%s)", cfg.StoreDriver), "Main")

	// Initialize MQTT
	bus := mqtt.Init(mqtt.Options{
		Host:        cfg.MQTTHost,
		Port:        cfg.MQTTPort,
		Username:    cfg.MQTTUser,
		Password:    cfg.MQTTPassword,
		ClientID:    cfg.MQTTClientID(),
		TopicPrefix: cfg.MQTTTopicPrefix,
	})
	defer bus.Destroy()

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	roles := discord.NewRoleProvider(discordClient.Session)
	surface := discord.NewSurface(discordClient.Session)
	engine := auth.NewEngine(store, roles, notify.NewSynchronizer(surface), auth.WithEvents(bus))

	if err := bridge.Register(bus, engine); err != nil {
		logger.Warn("Las solicitudes MQTT no estarán disponibles: "+err.Error(), "Main")
	}

	// Initialize web server
	webServer, err := web.Init(cfg.LogsWebServerHook, cfg.AllowedHosts)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el servidor web: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, &web.API{Bot: discordClient, Apps: engine})
	webServer.StartAsync(cfg.Port)

	// Register commands, components and events
	commands.RegisterAll(discordClient, engine, surface, roles, store, cfg)
	events.RegisterAll(discordClient, engine)

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Warn("Error deteniendo el cliente: "+err.Error(), "Main")
		}
	}()

	logger.Success("GuildAuthBot iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando GuildAuthBot...", "Main")
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
