package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Surface posts and edits messages for the notification synchronizer
type Surface struct {
	session *discordgo.Session
}

// NewSurface creates a Surface over session
func NewSurface(session *discordgo.Session) *Surface {
	return &Surface{session: session}
}

func (s *Surface) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return s.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
}

func (s *Surface) FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	return s.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
}

func (s *Surface) EditMessage(ctx context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	return s.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
}

func (s *Surface) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return s.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (s *Surface) DirectMessage(ctx context.Context, userID string, msg *discordgo.MessageSend) error {
	ch, err := s.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = s.session.ChannelMessageSendComplex(ch.ID, msg, discordgo.WithContext(ctx))
	return err
}

func (s *Surface) User(ctx context.Context, userID string) (*discordgo.User, error) {
	return s.session.User(userID, discordgo.WithContext(ctx))
}

func (s *Surface) GuildName(ctx context.Context, guildID string) (string, error) {
	if g, err := s.session.State.Guild(guildID); err == nil {
		return g.Name, nil
	}
	g, err := s.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return g.Name, nil
}

func (s *Surface) RoleName(ctx context.Context, guildID, roleID string) (string, error) {
	if r, err := s.session.State.Role(guildID, roleID); err == nil {
		return r.Name, nil
	}
	roles, err := s.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return r.Name, nil
		}
	}
	return "", discordgo.ErrStateNotFound
}
