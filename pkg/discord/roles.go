package discord

import (
	"context"
	"fmt"

	"github.com/PancyStudios/GuildAuthBot/pkg/guard"
	"github.com/bwmarrin/discordgo"
)

// RoleProvider resolves role positions and mutates member roles through a
// session, reading the state cache first and falling back to the API
type RoleProvider struct {
	session *discordgo.Session
}

// NewRoleProvider creates a RoleProvider over session
func NewRoleProvider(session *discordgo.Session) *RoleProvider {
	return &RoleProvider{session: session}
}

func (p *RoleProvider) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := p.session.State.Guild(guildID); err == nil {
		return g, nil
	}
	return p.session.Guild(guildID, discordgo.WithContext(ctx))
}

func (p *RoleProvider) roles(ctx context.Context, guild *discordgo.Guild) ([]*discordgo.Role, error) {
	if len(guild.Roles) > 0 {
		return guild.Roles, nil
	}
	return p.session.GuildRoles(guild.ID, discordgo.WithContext(ctx))
}

func (p *RoleProvider) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := p.session.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	return p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

// Hierarchy snapshots the bot's and the actor's top role positions
func (p *RoleProvider) Hierarchy(ctx context.Context, guildID, actorID string) (guard.Hierarchy, error) {
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return guard.Hierarchy{}, fmt.Errorf("no se pudo obtener el servidor: %w", err)
	}
	roles, err := p.roles(ctx, g)
	if err != nil {
		return guard.Hierarchy{}, fmt.Errorf("no se pudieron obtener los roles: %w", err)
	}

	actor, err := p.member(ctx, guildID, actorID)
	if err != nil {
		return guard.Hierarchy{}, fmt.Errorf("no se pudo obtener al miembro: %w", err)
	}
	bot, err := p.member(ctx, guildID, p.session.State.User.ID)
	if err != nil {
		return guard.Hierarchy{}, fmt.Errorf("no se pudo obtener al bot: %w", err)
	}

	return guard.Hierarchy{
		BotTop:       TopPosition(roles, bot.Roles),
		ActorTop:     TopPosition(roles, actor.Roles),
		ActorIsOwner: g.OwnerID == actorID,
	}, nil
}

// Role resolves roleID with its position
func (p *RoleProvider) Role(ctx context.Context, guildID, roleID string) (guard.Role, error) {
	if r, err := p.session.State.Role(guildID, roleID); err == nil {
		return guard.Role{ID: r.ID, Position: r.Position}, nil
	}

	roles, err := p.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return guard.Role{}, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return guard.Role{ID: r.ID, Position: r.Position}, nil
		}
	}
	return guard.Role{}, fmt.Errorf("rol %s no encontrado", roleID)
}

// AddRole grants roleID to userID
func (p *RoleProvider) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// AddRoles grants roleIDs in a single member edit, so Discord applies all of
// them or none
func (p *RoleProvider) AddRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	m, err := p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("no se pudo obtener al miembro: %w", err)
	}

	merged := MergeRoles(m.Roles, roleIDs)
	if len(merged) == len(m.Roles) {
		return nil
	}
	_, err = p.session.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &merged}, discordgo.WithContext(ctx))
	return err
}

// MergeRoles appends the ids in add that held does not contain yet
func MergeRoles(held, add []string) []string {
	seen := make(map[string]struct{}, len(held)+len(add))
	out := make([]string, 0, len(held)+len(add))
	for _, ids := range [][]string{held, add} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// RemoveRole revokes roleID from userID
func (p *RoleProvider) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return p.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// Permissions returns the actor's guild permissions and its permissions in
// channelID (zero when channelID is empty or unreadable)
func (p *RoleProvider) Permissions(ctx context.Context, member *discordgo.Member, channelID string) guard.Permissions {
	perms := guard.Permissions{Guild: member.Permissions}
	if channelID == "" || member.User == nil {
		return perms
	}
	if ch, err := p.session.UserChannelPermissions(member.User.ID, channelID, discordgo.WithContext(ctx)); err == nil {
		perms.Channel = ch
	}
	return perms
}

// TopPosition returns the highest position among memberRoles
func TopPosition(guildRoles []*discordgo.Role, memberRoles []string) int {
	held := make(map[string]struct{}, len(memberRoles))
	for _, id := range memberRoles {
		held[id] = struct{}{}
	}

	roles := make([]guard.Role, 0, len(memberRoles))
	for _, r := range guildRoles {
		if _, ok := held[r.ID]; ok {
			roles = append(roles, guard.Role{ID: r.ID, Position: r.Position})
		}
	}
	return guard.HighestPosition(roles)
}
