package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
)

// Bot is the view of the Discord client the API reports on
type Bot interface {
	IsReady() bool
	GuildCount() int
	Ping() time.Duration
	Uptime() time.Duration
	Self() *discordgo.User
}

// Applications is the read side of the auth engine
type Applications interface {
	Stats(ctx context.Context, guildID string) (models.StatusCounts, error)
	History(ctx context.Context, userID, guildID string, limit int) ([]*models.AuthApplication, error)
	Store() database.Store
}

// API holds what the routes read from
type API struct {
	Bot  Bot
	Apps Applications
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, a *API) {
	api := s.Group("/api")
	{
		api.GET("/health", a.health)
		api.GET("/status", a.status)
		api.GET("/bot", a.botInfo)
		api.GET("/guilds/:guildId/stats", a.guildStats)
		api.GET("/guilds/:guildId/users/:userId/history", a.userHistory)
	}
}

func (a *API) botOnline() bool {
	return a.Bot != nil && a.Bot.IsReady()
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "GuildAuthBot is running",
		"version": config.Version,
	})
}

// status returns the bot and database status
func (a *API) status(c *gin.Context) {
	dbStatus, dbOnline := database.StatusOf(c.Request.Context(), a.Apps.Store())

	bot := gin.H{"isOnline": a.botOnline()}
	if a.botOnline() {
		bot["pingMs"] = a.Bot.Ping().Milliseconds()
		bot["uptimeSeconds"] = int64(a.Bot.Uptime().Seconds())
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": bot,
	})
}

func (a *API) botInfo(c *gin.Context) {
	if !a.botOnline() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Bot Offline",
			"message": "El bot no está disponible en este momento.",
		})
		return
	}

	user := a.Bot.Self()
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"avatar":   user.Avatar,
		"guilds":   a.Bot.GuildCount(),
		"isReady":  true,
	})
}

func (a *API) guildStats(c *gin.Context) {
	guildID := c.Param("guildId")
	counts, err := a.Apps.Stats(c.Request.Context(), guildID)
	if err != nil {
		internalError(c, err)
		return
	}

	byStatus := make(map[models.Status]int, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		byStatus[s] = counts.Get(s)
	}
	c.JSON(http.StatusOK, gin.H{
		"guildId": guildID,
		"counts":  byStatus,
	})
}

func (a *API) userHistory(c *gin.Context) {
	limit := models.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "limit debe ser un número.",
			})
			return
		}
		limit = n
	}

	apps, err := a.Apps.History(c.Request.Context(), c.Param("userId"), c.Param("guildId"), limit)
	if err != nil {
		internalError(c, err)
		return
	}
	if apps == nil {
		apps = []*models.AuthApplication{}
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal Server Error",
		"message": "No se pudo consultar la base de datos.",
	})
}
