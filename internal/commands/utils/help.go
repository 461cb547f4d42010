package utils

import (
	"sort"
	"strings"

	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
)

func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Lista los comandos disponibles",
		"utils",
		helpHandler,
	)
}

func helpHandler(ctx *discord.CommandContext) error {
	return ctx.ReplyEphemeral(helpText(ctx.Client.Commands.All()))
}

// helpText lists every registered command grouped by category
func helpText(all map[string]*discord.Command) string {
	byCategory := map[string][]string{}
	for path, cmd := range all {
		if cmd.IsDev {
			continue
		}
		line := "• `/" + strings.ReplaceAll(path, ".", " ") + "` - " + cmd.Description
		byCategory[cmd.Category] = append(byCategory[cmd.Category], line)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("📖 **Ayuda de GuildAuthBot**\n")
	for _, c := range categories {
		lines := byCategory[c]
		sort.Strings(lines)
		b.WriteString("\n**" + c + "**\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
