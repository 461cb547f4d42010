// Package web provides the bot's HTTP status API.
// It uses Gin framework for high-performance web handling.
package web

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/errors"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// Server represents the web server
type Server struct {
	engine           *gin.Engine
	webhookURL       string
	allowedHostRegex *regexp.Regexp
	httpClient       *http.Client
}

var server *Server

// Init initializes the global web server
func Init(webhookURL, allowedHosts string) (*Server, error) {
	s, err := NewServer(webhookURL, allowedHosts)
	if err != nil {
		return nil, err
	}
	server = s
	return server, nil
}

// Get returns the global web server
func Get() *Server {
	return server
}

// NewServer creates a new web server. Requests whose Host does not match
// allowedHosts are refused with 403.
func NewServer(webhookURL, allowedHosts string) (*Server, error) {
	hostRegex, err := regexp.Compile(allowedHosts)
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_HOSTS inválido: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:           engine,
		webhookURL:       webhookURL,
		allowedHostRegex: hostRegex,
		httpClient:       &http.Client{Timeout: 5 * time.Second},
	}

	s.engine.Use(s.logsMiddleware())
	s.engine.Use(rateLimitMiddleware(RateLimitConfig{Window: time.Minute, MaxRequests: 100}))

	s.setupErrorHandlers()

	return s, nil
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// requestLog is what gets reported to the logs webhook
type requestLog struct {
	method  string
	path    string
	ip      string
	headers http.Header
	query   string
}

// logsMiddleware logs every request and refuses unknown hosts
func (s *Server) logsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := requestLog{
			method:  c.Request.Method,
			path:    c.Request.URL.Path,
			ip:      c.ClientIP(),
			headers: c.Request.Header.Clone(),
			query:   c.Request.URL.RawQuery,
		}

		if s.allowedHostRegex.MatchString(c.Request.Host) {
			logger.Info(fmt.Sprintf("[LOG] Nueva solicitud: %s %s", entry.method, entry.path), "WebServer")
			errors.Go(func() { s.sendLogToWebhook(entry, false) })
			c.Next()
			return
		}

		logger.Warn(fmt.Sprintf("[LOG] Solicitud Sospechosa: %s %s | %s", entry.method, entry.path, entry.ip), "WebServer")
		errors.Go(func() { s.sendLogToWebhook(entry, true) })
		c.AbortWithStatus(http.StatusForbidden)
	}
}

// sendLogToWebhook sends a request summary to the Discord webhook
func (s *Server) sendLogToWebhook(entry requestLog, suspicious bool) {
	if s.webhookURL == "" {
		return
	}

	title := fmt.Sprintf("💫 | Nueva solicitud al servidor web de tipo %s", entry.method)
	color := 0x00AE86
	if suspicious {
		title = fmt.Sprintf("💫 | Solicitud Sospechosa Rechazada: %s %s", entry.method, entry.path)
		color = 0xFFA500
	}

	headers, _ := json.Marshal(entry.headers)
	query := entry.query
	if query == "" {
		query = "{}"
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{map[string]interface{}{
			"title": title,
			"description": fmt.Sprintf(
				"> **Ruta:** `%s`\n> **IP:** `%s`\n> **Headers:** ```%s``` \n> **Query:** ```%s```",
				entry.path, entry.ip, string(headers), query,
			),
			"color":     color,
			"timestamp": time.Now().Format(time.RFC3339),
		}},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// rateLimitMiddleware allows MaxRequests per client IP per window
func rateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	type clientInfo struct {
		count   int
		resetAt time.Time
	}
	var mu sync.Mutex
	clients := make(map[string]*clientInfo)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		info, exists := clients[ip]
		if !exists || now.After(info.resetAt) {
			info = &clientInfo{resetAt: now.Add(cfg.Window)}
			clients[ip] = info
		}
		info.count++
		count := info.count
		mu.Unlock()

		if count > cfg.MaxRequests {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Demasiadas solicitudes, por favor intente de nuevo más tarde.",
			})
			return
		}

		c.Next()
	}
}

// setupErrorHandlers sets up error handling routes
func (s *Server) setupErrorHandlers() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "La ruta solicitada no existe.",
			"status":  404,
		})
	})

	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "El método HTTP no está permitido para esta ruta.",
			"status":  405,
		})
	})
}

// Start starts the web server
func (s *Server) Start(port string) error {
	logger.Info(fmt.Sprintf("🚀 Servidor escuchando en http://localhost:%s", port), "WebServer")
	return s.engine.Run(":" + port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(port string) {
	go func() {
		if err := s.Start(port); err != nil {
			logger.Error(fmt.Sprintf("Error iniciando el servidor web: %v", err), "WebServer")
		}
	}()
}

// Group creates a new router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}
