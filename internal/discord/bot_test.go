package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/daylog/internal/flow"
	"github.com/ashureev/daylog/internal/session"
)

type sent struct {
	channelID string
	content   string
}

type fakeREST struct {
	mu      sync.Mutex
	dmErr   error
	sendErr error
	sent    []sent
	calls   []string
	edited  string
}

func (f *fakeREST) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeREST) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	if resp.Type == discordgo.InteractionResponseDeferredChannelMessageWithSource && resp.Data.Flags == discordgo.MessageFlagsEphemeral {
		f.record("defer")
		return nil
	}
	f.record("respond")
	return nil
}

func (f *fakeREST) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.record("edit")
	f.mu.Lock()
	defer f.mu.Unlock()
	if edit.Content != nil {
		f.edited = *edit.Content
	}
	return &discordgo.Message{}, nil
}

func (f *fakeREST) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.record("dm")
	if f.dmErr != nil {
		return nil, f.dmErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeREST) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sent{channelID, content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeREST) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type begun struct {
	userID, userName string
	dest             session.Destination
}

type fakeEngine struct {
	beginErr error
	begun    []begun
	handled  []string
}

func (f *fakeEngine) Begin(_ context.Context, userID, userName string, dest session.Destination) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.begun = append(f.begun, begun{userID, userName, dest})
	return nil
}

func (f *fakeEngine) HandleMessage(userID, channelID, text string) bool {
	f.handled = append(f.handled, userID+"|"+channelID+"|"+text)
	return true
}

func newTestBot(rest *fakeREST, engine Engine) *Bot {
	return &Bot{
		cfg:    Config{CommandPrefix: "!", SummaryChannelID: "summary"},
		rest:   rest,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		engine: engine,
		ctx:    context.Background(),
		selfID: "bot",
	}
}

func guildMessage(authorID, channelID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: channelID,
		GuildID:   "g1",
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Username: "dana"},
		Member:    &discordgo.Member{Nick: "Dana"},
	}}
}

func TestStartLogOpensDM(t *testing.T) {
	rest := &fakeREST{}
	engine := &fakeEngine{}
	b := newTestBot(rest, engine)

	b.onMessage(guildMessage("1001", "general", "!start_log"))

	require.Len(t, engine.begun, 1)
	assert.Equal(t, "1001", engine.begun[0].userID)
	assert.Equal(t, "Dana", engine.begun[0].userName)
	assert.Equal(t, "dm-1001", engine.begun[0].dest.ChannelID())

	msgs := rest.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "general", msgs[0].channelID)
	assert.Equal(t, "<@1001> "+dmStartedText, msgs[0].content)
}

func TestStartLogDMFailureReportsInOrigin(t *testing.T) {
	rest := &fakeREST{dmErr: errors.New("403 Forbidden")}
	engine := &fakeEngine{}
	b := newTestBot(rest, engine)

	b.onMessage(guildMessage("1001", "general", "!log"))

	assert.Empty(t, engine.begun)
	msgs := rest.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, sent{"general", dmFailedText}, msgs[0])
}

func TestStartLogGreetingFailure(t *testing.T) {
	rest := &fakeREST{}
	engine := &fakeEngine{beginErr: flow.ErrUnreachable}
	b := newTestBot(rest, engine)

	b.onMessage(guildMessage("1001", "general", "!start_log"))

	msgs := rest.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, dmFailedText, msgs[0].content)
}

func slashLog(userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:     "i1",
		Type:   discordgo.InteractionApplicationCommand,
		Data:   discordgo.ApplicationCommandInteractionData{Name: SlashCommandName},
		Member: &discordgo.Member{Nick: "Dana", User: &discordgo.User{ID: userID}},
	}}
}

func TestSlashCommandAcknowledgesBeforeOpeningDM(t *testing.T) {
	rest := &fakeREST{}
	engine := &fakeEngine{}
	b := newTestBot(rest, engine)

	b.onInteraction(slashLog("1001"))

	assert.Equal(t, []string{"defer", "dm", "edit"}, rest.calls)
	assert.Equal(t, dmStartedText, rest.edited)
	require.Len(t, engine.begun, 1)
	assert.Equal(t, "Dana", engine.begun[0].userName)
}

func TestSlashCommandDMFailure(t *testing.T) {
	rest := &fakeREST{dmErr: errors.New("403 Forbidden")}
	engine := &fakeEngine{}
	b := newTestBot(rest, engine)

	b.onInteraction(slashLog("1001"))

	assert.Equal(t, []string{"defer", "dm", "edit"}, rest.calls)
	assert.Equal(t, dmFailedText, rest.edited)
	assert.Empty(t, engine.begun)
	assert.Empty(t, rest.messages())
}

func TestHelloMentionsAuthor(t *testing.T) {
	rest := &fakeREST{}
	b := newTestBot(rest, &fakeEngine{})

	b.onMessage(guildMessage("1001", "general", "!hello"))

	msgs := rest.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello, <@1001>!", msgs[0].content)
}

func TestRepliesRouteToEngine(t *testing.T) {
	engine := &fakeEngine{}
	b := newTestBot(&fakeREST{}, engine)

	msg := guildMessage("1001", "dm-1001", "40")
	msg.GuildID = ""
	b.onMessage(msg)

	assert.Equal(t, []string{"1001|dm-1001|40"}, engine.handled)
}

func TestIgnoresBotsAndSelf(t *testing.T) {
	engine := &fakeEngine{}
	b := newTestBot(&fakeREST{}, engine)

	other := guildMessage("2002", "general", "!start_log")
	other.Author.Bot = true
	b.onMessage(other)
	b.onMessage(guildMessage("bot", "general", "!start_log"))

	assert.Empty(t, engine.begun)
	assert.Empty(t, engine.handled)
}

func TestAnnouncer(t *testing.T) {
	rest := &fakeREST{}
	b := newTestBot(rest, &fakeEngine{})

	ann := b.Announcer()
	require.NotNil(t, ann)
	require.NoError(t, ann.Announce(context.Background(), "**Dana** logged"))
	assert.Equal(t, []sent{{"summary", "**Dana** logged"}}, rest.messages())

	b.cfg.SummaryChannelID = ""
	assert.Nil(t, b.Announcer())
}

func TestChannelSendWrapsError(t *testing.T) {
	rest := &fakeREST{sendErr: errors.New("boom")}
	c := &channel{rest: rest, id: "dm-1"}

	err := c.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "dm-1"))
}

func TestDisplayName(t *testing.T) {
	u := &discordgo.User{Username: "dana_k", GlobalName: "Dana K"}
	assert.Equal(t, "Nick", displayName(u, &discordgo.Member{Nick: "Nick"}))
	assert.Equal(t, "Dana K", displayName(u, nil))
	assert.Equal(t, "dana_k", displayName(&discordgo.User{Username: "dana_k"}, &discordgo.Member{}))
}

func TestInteractionUser(t *testing.T) {
	guild := &discordgo.Interaction{Member: &discordgo.Member{User: &discordgo.User{ID: "1"}}}
	assert.Equal(t, "1", interactionUser(guild).ID)

	dm := &discordgo.Interaction{User: &discordgo.User{ID: "2"}}
	assert.Equal(t, "2", interactionUser(dm).ID)
}
