package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/config"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

func createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Muestra estadísticas del bot",
		"utils",
		statsHandler,
	)
}

func statsHandler(ctx *discord.CommandContext) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memberCount := 0
	for _, guild := range ctx.Session.State.Guilds {
		memberCount += guild.MemberCount
	}

	embed := statsEmbed(m.Alloc, ctx.Client.GuildCount(), memberCount, ctx.Client.Uptime())
	if self := ctx.Client.Self(); self != nil {
		embed.Footer.IconURL = self.AvatarURL("")
	}
	return ctx.ReplyEmbed(embed)
}

func statsEmbed(alloc uint64, guilds, members int, uptime time.Duration) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 Estadísticas del Bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Versión del Bot", Value: config.Version, Inline: true},
			{Name: "🐹 Versión de Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
			{Name: "📚 Versión de DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🖥 Uso de RAM", Value: fmt.Sprintf("%.2f MB", float64(alloc)/1024/1024), Inline: true},
			{Name: "⚙️ Goroutines", Value: fmt.Sprintf("%d Goroutines / %d CPUs", runtime.NumGoroutine(), runtime.NumCPU()), Inline: true},
			{Name: "⏱ Uptime", Value: discord.FormatDuration(uptime), Inline: true},
			{Name: "🏠 Guilds", Value: fmt.Sprintf("%d", guilds), Inline: true},
			{Name: "👥 Miembros", Value: fmt.Sprintf("%d", members), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "💫 - Developed by PancyStudios",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
