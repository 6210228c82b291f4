// Package discord connects the activity log flow to a Discord bot.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/ashureev/daylog/internal/flow"
	"github.com/ashureev/daylog/internal/session"
)

// SlashCommandName is the registered application command.
const SlashCommandName = flow.SlashLogName

// User-facing copy for the Discord surface.
const (
	dmFailedText    = "I couldn't send you a direct message. Please allow DMs from server members and try again."
	dmStartedText   = "Check your DMs to log today's activity."
	startFailedText = "Something went wrong starting your activity log. Please try again."
)

// Engine is the part of flow.Engine the bot drives.
type Engine interface {
	Begin(ctx context.Context, userID, userName string, dest session.Destination) error
	HandleMessage(userID, channelID, text string) bool
}

// api is the subset of the Discord REST client used by the handlers.
type api interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Config holds the Discord settings.
type Config struct {
	Token            string
	GuildID          string
	SummaryChannelID string
	CommandPrefix    string
}

// Bot owns the gateway session and routes events into the flow engine.
type Bot struct {
	cfg     Config
	session *discordgo.Session
	rest    api
	logger  *slog.Logger

	mu     sync.RWMutex
	engine Engine
	ctx    context.Context
	selfID string
}

// New creates a bot. No connection is made until Open.
func New(cfg Config, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Bot{
		cfg:     cfg,
		session: s,
		rest:    s,
		logger:  logger,
		ctx:     context.Background(),
	}, nil
}

// Announcer returns the summary channel poster, or nil when no channel is configured.
func (b *Bot) Announcer() flow.Announcer {
	if b.cfg.SummaryChannelID == "" {
		return nil
	}
	return &channel{rest: b.rest, id: b.cfg.SummaryChannelID}
}

// Open connects to the gateway, installs handlers and registers the slash command.
func (b *Bot) Open(ctx context.Context, engine Engine) error {
	b.mu.Lock()
	b.engine = engine
	b.ctx = ctx
	b.mu.Unlock()

	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.onReady(r)
	})
	b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessage(m)
	})
	b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.onInteraction(i)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}

	if err := b.registerCommands(ctx); err != nil {
		return err
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (b *Bot) registerCommands(ctx context.Context) error {
	appID := b.session.State.User.ID
	cmds := []*discordgo.ApplicationCommand{{
		Name:        SlashCommandName,
		Description: "Log today's sales activity",
	}}
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, cmds, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("register slash commands: %w", err)
	}
	scope := b.cfg.GuildID
	if scope == "" {
		scope = "global"
	}
	b.logger.Info("Slash commands registered", "scope", scope, "count", len(cmds))
	return nil
}

func (b *Bot) onReady(r *discordgo.Ready) {
	b.mu.Lock()
	b.selfID = r.User.ID
	b.mu.Unlock()
	b.logger.Info("Discord bot ready", "user", r.User.Username, "user_id", r.User.ID, "guilds", len(r.Guilds))
}

// Ready reports whether the gateway has completed its handshake.
func (b *Bot) Ready() bool {
	_, _, selfID := b.state()
	return selfID != ""
}

func (b *Bot) state() (Engine, context.Context, string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.engine, b.ctx, b.selfID
}

func (b *Bot) onMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	engine, ctx, selfID := b.state()
	if engine == nil || m.Author.ID == selfID {
		return
	}

	switch flow.ParseCommand(b.cfg.CommandPrefix, m.Content) {
	case flow.CommandStartLog:
		name := displayName(m.Author, m.Member)
		if err := b.start(ctx, engine, m.Author.ID, name); err != nil {
			b.reply(ctx, m.ChannelID, failureText(err))
			return
		}
		if m.GuildID != "" {
			b.reply(ctx, m.ChannelID, mention(m.Author.ID)+" "+dmStartedText)
		}
	case flow.CommandHello:
		b.reply(ctx, m.ChannelID, "Hello, "+mention(m.Author.ID)+"!")
	default:
		engine.HandleMessage(m.Author.ID, m.ChannelID, m.Content)
	}
}

func (b *Bot) onInteraction(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.ApplicationCommandData().Name != SlashCommandName {
		return
	}
	user := interactionUser(i.Interaction)
	if user == nil {
		return
	}
	engine, ctx, _ := b.state()
	if engine == nil {
		return
	}

	// Discord drops interactions not acknowledged within 3s.
	deferred := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}
	if err := b.rest.InteractionRespond(i.Interaction, deferred, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("Failed to acknowledge interaction", "user_id", user.ID, "error", err)
		return
	}

	text := dmStartedText
	if err := b.start(ctx, engine, user.ID, displayName(user, i.Member)); err != nil {
		text = failureText(err)
	}
	if _, err := b.rest.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("Failed to respond to interaction", "user_id", user.ID, "error", err)
	}
}

// start opens a DM with the user and begins a flow there.
func (b *Bot) start(ctx context.Context, engine Engine, userID, userName string) error {
	dm, err := b.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Warn("Failed to open DM", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", flow.ErrUnreachable, err)
	}
	dest := &channel{rest: b.rest, id: dm.ID}
	if err := engine.Begin(ctx, userID, userName, dest); err != nil {
		return err
	}
	b.logger.Info("Flow started", "user_id", userID, "channel_id", dm.ID)
	return nil
}

func (b *Bot) reply(ctx context.Context, channelID, text string) {
	if _, err := b.rest.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		b.logger.Warn("Failed to reply", "channel_id", channelID, "error", err)
	}
}

func failureText(err error) string {
	if errors.Is(err, flow.ErrUnreachable) {
		return dmFailedText
	}
	return startFailedText
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

// displayName prefers the guild nickname, then the global name, then the username.
func displayName(u *discordgo.User, m *discordgo.Member) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// interactionUser returns the invoking user for guild and DM interactions.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// channel is a Discord text channel used as a flow destination or summary target.
type channel struct {
	rest api
	id   string
}

func (c *channel) ChannelID() string {
	return c.id
}

func (c *channel) Send(ctx context.Context, text string) error {
	if _, err := c.rest.ChannelMessageSend(c.id, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to channel %s: %w", c.id, err)
	}
	return nil
}

func (c *channel) Announce(ctx context.Context, text string) error {
	return c.Send(ctx, text)
}
