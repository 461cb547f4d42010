package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpTextGroupsByCategory(t *testing.T) {
	noop := func(ctx *discord.CommandContext) error { return nil }
	all := map[string]*discord.Command{
		"utils.ping":  discord.NewCommand("ping", "Latencia", "utils", noop),
		"auth.config": discord.NewCommand("config", "Configuración", "auth", noop),
		"manage_role": discord.NewCommand("manage_role", "Roles", "auth", noop),
		"debug":       discord.NewCommand("debug", "Interno", "dev", noop).AsDev(),
	}

	text := helpText(all)
	assert.True(t, strings.HasPrefix(text, "📖 **Ayuda de GuildAuthBot**"))
	assert.Contains(t, text, "• `/utils ping` - Latencia")
	assert.Contains(t, text, "• `/auth config` - Configuración")
	assert.NotContains(t, text, "debug")
	assert.Less(t, strings.Index(text, "**auth**"), strings.Index(text, "**utils**"))
}

func TestStatusText(t *testing.T) {
	text := statusText("🟢 | En linea", 3)
	assert.Contains(t, text, "Base de datos: 🟢 | En linea")
	assert.Contains(t, text, "Servidores: 3")
}

func TestStatsEmbed(t *testing.T) {
	embed := statsEmbed(2*1024*1024, 4, 120, 90*time.Minute)
	require.Len(t, embed.Fields, 8)
	assert.Equal(t, "2.00 MB", embed.Fields[3].Value)
	assert.Equal(t, "1 horas, 30 minutos", embed.Fields[5].Value)
	assert.Equal(t, "4", embed.Fields[6].Value)
	assert.Equal(t, "120", embed.Fields[7].Value)
}
