package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	sent     []*discordgo.MessageSend
	edits    []*discordgo.MessageEdit
	dms      map[string]*discordgo.MessageSend
	messages map[string]*discordgo.Message
	users    map[string]*discordgo.User
	roles    map[string]string

	sendErr, fetchErr, editErr, dmErr error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		dms:      map[string]*discordgo.MessageSend{},
		messages: map[string]*discordgo.Message{},
		users:    map[string]*discordgo.User{},
		roles:    map[string]string{},
	}
}

func (f *fakeSurface) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, msg)
	m := &discordgo.Message{ID: "msg1", ChannelID: channelID, Embeds: msg.Embeds, Components: msg.Components}
	f.messages[m.ID] = m
	return m, nil
}

func (f *fakeSurface) FetchMessage(_ context.Context, _, messageID string) (*discordgo.Message, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	m, ok := f.messages[messageID]
	if !ok {
		return nil, errors.New("unknown message")
	}
	return m, nil
}

func (f *fakeSurface) EditMessage(_ context.Context, edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, edit)
	return &discordgo.Message{ID: edit.ID}, nil
}

func (f *fakeSurface) DirectMessage(_ context.Context, userID string, msg *discordgo.MessageSend) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms[userID] = msg
	return nil
}

func (f *fakeSurface) User(_ context.Context, userID string) (*discordgo.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, errors.New("unknown user")
	}
	return u, nil
}

func (f *fakeSurface) GuildName(context.Context, string) (string, error) {
	return "Pancy", nil
}

func (f *fakeSurface) RoleName(_ context.Context, _, roleID string) (string, error) {
	name, ok := f.roles[roleID]
	if !ok {
		return "", errors.New("unknown role")
	}
	return name, nil
}

func newTestSync(surface Surface) *Synchronizer {
	s := NewSynchronizer(surface)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestPublish(t *testing.T) {
	surface := newFakeSurface()
	surface.users["175928847299117063"] = &discordgo.User{ID: "175928847299117063", Username: "ana", Discriminator: "0"}
	s := newTestSync(surface)

	app := &models.AuthApplication{UserID: "175928847299117063", Answers: []string{"21", ""}}
	set := []questions.Question{{Text: "Edad"}, {Text: "Twitter", Optional: true}}

	id, err := s.Publish(context.Background(), "c1", app, set)
	require.NoError(t, err)
	assert.Equal(t, "msg1", id)

	require.Len(t, surface.sent, 1)
	embed := surface.sent[0].Embeds[0]
	assert.Equal(t, ColorPending, embed.Color)
	assert.Equal(t, "ana", embed.Author.Name)
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "175928847299117063", embed.Fields[0].Value)
	assert.Equal(t, "<t:1462015105:R>", embed.Fields[1].Value)
	assert.Equal(t, "Edad", embed.Fields[2].Name)
	assert.Equal(t, "21", embed.Fields[2].Value)
	assert.Equal(t, "Ninguna", embed.Fields[3].Value)

	row := surface.sent[0].Components[0].(discordgo.ActionsRow)
	assert.Equal(t, "auth_approve_175928847299117063", row.Components[0].(discordgo.Button).CustomID)
	assert.Equal(t, "auth_reject_175928847299117063", row.Components[1].(discordgo.Button).CustomID)
}

func TestPublishSurfaceError(t *testing.T) {
	surface := newFakeSurface()
	surface.sendErr = errors.New("missing access")
	s := newTestSync(surface)

	_, err := s.Publish(context.Background(), "c1", &models.AuthApplication{UserID: "1"}, nil)
	var se *SurfaceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "publish", se.Op)
}

func publishOne(t *testing.T, surface *fakeSurface) *Synchronizer {
	t.Helper()
	s := newTestSync(surface)
	_, err := s.Publish(context.Background(), "c1", &models.AuthApplication{UserID: "1", Answers: []string{"x"}},
		[]questions.Question{{Text: "Q"}})
	require.NoError(t, err)
	return s
}

func TestReflectApproved(t *testing.T) {
	surface := newFakeSurface()
	surface.users["mod"] = &discordgo.User{ID: "mod", Username: "mod", Discriminator: "0"}
	s := publishOne(t, surface)

	err := s.Reflect(context.Background(), "c1", "msg1", Outcome{
		Status:      models.StatusApproved,
		ProcessorID: "mod",
		RoleIDs:     []string{"r1", "r2"},
	})
	require.NoError(t, err)

	require.Len(t, surface.edits, 1)
	edit := surface.edits[0]
	embed := (*edit.Embeds)[0]
	assert.Equal(t, ColorApproved, embed.Color)
	assert.Equal(t, titleApproved, embed.Title)
	assert.Equal(t, "<@&r1>, <@&r2>", embed.Fields[len(embed.Fields)-2].Value)
	assert.Equal(t, "mod", embed.Fields[len(embed.Fields)-1].Value)
	require.NotNil(t, edit.Components)
	assert.Empty(t, *edit.Components)

	// the original message embed is left untouched
	original := surface.messages["msg1"].Embeds[0]
	assert.Equal(t, ColorPending, original.Color)
	assert.Len(t, original.Fields, 3)
}

func TestReflectRejected(t *testing.T) {
	surface := newFakeSurface()
	s := publishOne(t, surface)

	err := s.Reflect(context.Background(), "c1", "msg1", Outcome{
		Status:      models.StatusRejected,
		ProcessorID: "mod",
		Reason:      "spam",
	})
	require.NoError(t, err)

	embed := (*surface.edits[0].Embeds)[0]
	assert.Equal(t, ColorRejected, embed.Color)
	assert.Equal(t, "spam", embed.Fields[len(embed.Fields)-2].Value)
	assert.Equal(t, "<@mod>", embed.Fields[len(embed.Fields)-1].Value)
}

func TestReflectCancelled(t *testing.T) {
	surface := newFakeSurface()
	s := publishOne(t, surface)

	require.NoError(t, s.Reflect(context.Background(), "c1", "msg1", Outcome{Status: models.StatusCancelled}))

	embed := (*surface.edits[0].Embeds)[0]
	assert.Equal(t, ColorCancelled, embed.Color)
	assert.Equal(t, titleCancelled, embed.Title)
	assert.Equal(t, footerCancel, embed.Footer.Text)
	assert.Len(t, embed.Fields, 3)
	assert.Empty(t, *surface.edits[0].Components)
}

func TestReflectErrors(t *testing.T) {
	surface := newFakeSurface()
	s := newTestSync(surface)

	err := s.Reflect(context.Background(), "c1", "gone", Outcome{Status: models.StatusCancelled})
	var se *SurfaceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "fetch", se.Op)

	s = publishOne(t, surface)
	surface.editErr = errors.New("forbidden")
	err = s.Reflect(context.Background(), "c1", "msg1", Outcome{Status: models.StatusCancelled})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "edit", se.Op)

	surface.editErr = nil
	err = s.Reflect(context.Background(), "c1", "msg1", Outcome{Status: models.StatusPending})
	assert.Error(t, err)
}

func TestNotifyApplicant(t *testing.T) {
	surface := newFakeSurface()
	surface.roles["r1"] = "Miembro"
	s := newTestSync(surface)

	require.NoError(t, s.NotifyApplicant(context.Background(), "u1", "g1", []string{"r1", "r2"}))
	dm := surface.dms["u1"]
	require.NotNil(t, dm)
	assert.Equal(t, ColorApproved, dm.Embeds[0].Color)
	assert.Contains(t, dm.Embeds[0].Description, "Pancy")
	assert.Equal(t, "Miembro, r2", dm.Embeds[0].Fields[0].Value)

	surface.dmErr = errors.New("cannot send messages to this user")
	err := s.NotifyApplicant(context.Background(), "u1", "g1", nil)
	var se *SurfaceError
	assert.ErrorAs(t, err, &se)
}
