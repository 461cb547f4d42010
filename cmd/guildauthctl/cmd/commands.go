package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/PancyStudios/GuildAuthBot/internal/commands"
	"github.com/PancyStudios/GuildAuthBot/pkg/auth"
	"github.com/PancyStudios/GuildAuthBot/pkg/database"
	"github.com/PancyStudios/GuildAuthBot/pkg/discord"
	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/notify"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
)

var guildFlag string

func init() {
	commandsCmd.PersistentFlags().StringVar(&guildFlag, "guild", "", "Servidor objetivo (vacío para comandos globales)")
	commandsCmd.AddCommand(commandsListCmd, commandsSyncCmd, commandsCleanCmd)
	rootCmd.AddCommand(commandsCmd)
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Gestiona los comandos slash registrados en Discord",
}

var commandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista los comandos registrados",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDiscord(func(client *discord.ExtendedClient) error {
			appID := client.Session.State.User.ID
			cmds, err := client.Session.ApplicationCommands(appID, guildFlag)
			if err != nil {
				return fmt.Errorf("error obteniendo comandos: %w", err)
			}
			return printCommands(cmd.OutOrStdout(), cmds)
		})
	},
}

var commandsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reemplaza los comandos registrados por los definidos en el bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		store, err := database.Open(ctx, cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("error abriendo la base de datos: %w", err)
		}
		defer store.Close()

		return withDiscord(func(client *discord.ExtendedClient) error {
			roles := discord.NewRoleProvider(client.Session)
			surface := discord.NewSurface(client.Session)
			engine := auth.NewEngine(store, roles, notify.NewSynchronizer(surface))
			commands.RegisterAll(client, engine, surface, roles, store, cfg)

			appID := client.Session.State.User.ID
			defs := commandsFor(client.CommandHandler, guildFlag, cfg.DevGuildID)
			synced, err := client.Session.ApplicationCommandBulkOverwrite(appID, guildFlag, defs)
			if err != nil {
				return fmt.Errorf("error sincronizando comandos: %w", err)
			}
			logger.Success(fmt.Sprintf("✅ %d comandos sincronizados", len(synced)), "Ctl")
			return printCommands(cmd.OutOrStdout(), synced)
		})
	},
}

var commandsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Elimina todos los comandos registrados",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDiscord(func(client *discord.ExtendedClient) error {
			if err := client.CommandHandler.UnregisterCommands(guildFlag); err != nil {
				return fmt.Errorf("error eliminando comandos: %w", err)
			}
			logger.Success("✅ Todos los comandos han sido eliminados", "Ctl")
			return nil
		})
	},
}

// commandsFor picks the definitions synced to guildID: global ones when it is
// empty, dev ones for the dev guild, nothing elsewhere
func commandsFor(ch *discord.CommandHandler, guildID, devGuildID string) []*discordgo.ApplicationCommand {
	switch {
	case guildID == "":
		return ch.GlobalCommands()
	case guildID == devGuildID:
		return ch.DevCommands()
	default:
		return []*discordgo.ApplicationCommand{}
	}
}

// withDiscord opens a gateway session for the duration of fn
func withDiscord(fn func(client *discord.ExtendedClient) error) error {
	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("error creando el cliente de Discord: %w", err)
	}
	if err := client.Session.Open(); err != nil {
		return fmt.Errorf("error conectando a Discord: %w", err)
	}
	defer client.Session.Close()

	return fn(client)
}

type commandRow struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Subcommands int    `json:"subcommands" yaml:"subcommands"`
}

func commandRows(cmds []*discordgo.ApplicationCommand) []commandRow {
	rows := make([]commandRow, 0, len(cmds))
	for _, c := range cmds {
		rows = append(rows, commandRow{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Subcommands: countSubcommands(c.Options),
		})
	}
	return rows
}

func countSubcommands(opts []*discordgo.ApplicationCommandOption) int {
	n := 0
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand:
			n++
		case discordgo.ApplicationCommandOptionSubCommandGroup:
			n += countSubcommands(o.Options)
		}
	}
	return n
}

func printCommands(w io.Writer, cmds []*discordgo.ApplicationCommand) error {
	rows := commandRows(cmds)
	if done, err := formatOutput(w, rows); done {
		return err
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No hay comandos registrados")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NOMBRE\tSUBCOMANDOS\tID\tDESCRIPCIÓN")
	for _, r := range rows {
		fmt.Fprintf(tw, "/%s\t%d\t%s\t%s\n", r.Name, r.Subcommands, r.ID, r.Description)
	}
	return tw.Flush()
}
