package discord

import (
	"sync"

	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// EventHandler attaches gateway event handlers to the session
type EventHandler struct {
	client *ExtendedClient
	events []interface{}
	mu     sync.RWMutex
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{
		client: client,
		events: make([]interface{}, 0),
	}
}

// RegisterEvent adds an event handler to the Discord session
func (eh *EventHandler) RegisterEvent(handler interface{}) {
	eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.events = append(eh.events, handler)
	eh.mu.Unlock()
}

// Count returns how many handlers were attached
func (eh *EventHandler) Count() int {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return len(eh.events)
}

// OnReady registers a ready event handler
func (eh *EventHandler) OnReady(handler func(s *discordgo.Session, r *discordgo.Ready)) {
	eh.RegisterEvent(handler)
	logger.Debug("Evento 'Ready' registrado", "EventHandler")
}

// OnGuildCreate registers a guild create event handler
func (eh *EventHandler) OnGuildCreate(handler func(s *discordgo.Session, g *discordgo.GuildCreate)) {
	eh.RegisterEvent(handler)
	logger.Debug("Evento 'GuildCreate' registrado", "EventHandler")
}

// OnGuildDelete registers a guild delete event handler
func (eh *EventHandler) OnGuildDelete(handler func(s *discordgo.Session, g *discordgo.GuildDelete)) {
	eh.RegisterEvent(handler)
	logger.Debug("Evento 'GuildDelete' registrado", "EventHandler")
}

// OnGuildRoleDelete registers a role delete event handler
func (eh *EventHandler) OnGuildRoleDelete(handler func(s *discordgo.Session, r *discordgo.GuildRoleDelete)) {
	eh.RegisterEvent(handler)
	logger.Debug("Evento 'GuildRoleDelete' registrado", "EventHandler")
}

// OnChannelDelete registers a channel delete event handler
func (eh *EventHandler) OnChannelDelete(handler func(s *discordgo.Session, c *discordgo.ChannelDelete)) {
	eh.RegisterEvent(handler)
	logger.Debug("Evento 'ChannelDelete' registrado", "EventHandler")
}
