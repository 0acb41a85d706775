// Package discord connects the claim workflow and the admin commands to
// Discord. It owns the gateway session, serves the durable claim button,
// delivers keys by direct message, and answers prefixed text commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shampis/trialbot/internal/admin"
	"github.com/shampis/trialbot/internal/claim"
	"github.com/shampis/trialbot/internal/config"
)

// session is the subset of *discordgo.Session the bot calls.
type session interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ session = (*discordgo.Session)(nil)

// Claimer runs a claim for an account.
type Claimer interface {
	Claim(ctx context.Context, c claim.Claimant) claim.Outcome
}

// Bot is the Discord adapter.
type Bot struct {
	cfg    config.DiscordConfig
	prompt config.PromptConfig

	conn *discordgo.Session
	api  session

	claimer    Claimer
	router     *admin.Router
	components *componentRegistry

	logger *slog.Logger
	now    func() time.Time
	ctx    context.Context
}

var (
	_ admin.Prompter  = (*Bot)(nil)
	_ claim.Deliverer = (*Bot)(nil)
)

// New creates a Bot for cfg. The gateway connection is opened by Run. Wire the
// workflow and the command router with Attach before calling Run.
func New(cfg config.DiscordConfig, prompt config.PromptConfig, logger *slog.Logger) (*Bot, error) {
	conn, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	conn.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := newBot(conn, cfg, prompt, logger)
	b.conn = conn
	conn.AddHandler(b.onReady)
	conn.AddHandler(b.onInteraction)
	conn.AddHandler(b.onMessage)
	return b, nil
}

func newBot(api session, cfg config.DiscordConfig, prompt config.PromptConfig, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		cfg:        cfg,
		prompt:     prompt,
		api:        api,
		components: newComponentRegistry(),
		logger:     logger.With("component", "discord"),
		now:        time.Now,
		ctx:        context.Background(),
	}
	b.components.Register(ClaimButtonID, b.handleClaim)
	return b
}

// Attach wires the claim workflow and the admin command router.
func (b *Bot) Attach(claimer Claimer, router *admin.Router) {
	b.claimer = claimer
	b.router = router
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.conn == nil {
		return errors.New("discord: no gateway session")
	}
	b.ctx = ctx

	if err := b.conn.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	defer b.conn.Close()

	<-ctx.Done()
	b.logger.Info("disconnecting")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("connected", "user", r.User.String(), "id", r.User.ID, "guilds", len(r.Guilds))
	if b.cfg.Status != "" {
		if err := s.UpdateGameStatus(0, b.cfg.Status); err != nil {
			b.logger.Warn("setting presence failed", "error", err)
		}
	}
}

func (b *Bot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatchInteraction(b.ctx, i.Interaction)
}

func (b *Bot) dispatchInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID
	h, ok := b.components.Lookup(customID)
	if !ok {
		b.logger.Debug("ignoring unknown component", "custom_id", customID)
		return
	}
	h(ctx, i)
}

// handleClaim serves the claim button. The response is deferred first because
// delivering the key may outlast Discord's three second interaction deadline.
func (b *Bot) handleClaim(ctx context.Context, i *discordgo.Interaction) {
	user := interactionUser(i)
	if user == nil || b.claimer == nil {
		return
	}

	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Error("acknowledging claim failed", "user", user.ID, "error", err)
		return
	}

	out := b.claimer.Claim(ctx, claim.Claimant{
		ID:          user.ID,
		Username:    user.String(),
		DisplayName: displayName(i.Member, user),
	})

	msg := out.Message()
	if _, err := b.api.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &msg}); err != nil {
		b.logger.Error("answering claim failed", "user", user.ID, "outcome", out.Status.String(), "error", err)
	}
}

func (b *Bot) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.handleMessage(b.ctx, m.Message)
}

func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || b.router == nil {
		return
	}
	inv, ok := b.router.Parse(m.Content)
	if !ok {
		return
	}

	perms, err := b.api.UserChannelPermissions(m.Author.ID, m.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Warn("resolving permissions failed", "user", m.Author.ID, "error", err)
	}
	inv.IsAdmin = err == nil && perms&discordgo.PermissionAdministrator != 0
	inv.Guild = m.GuildID

	b.logger.Info("admin command", "command", inv.Name, "user", m.Author.ID, "admin", inv.IsAdmin)
	reply := b.router.Handle(ctx, inv)

	sent, err := b.api.ChannelMessageSend(m.ChannelID, reply.Text, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Error("replying to command failed", "command", inv.Name, "error", err)
		return
	}
	if reply.Lifetime > 0 {
		time.AfterFunc(reply.Lifetime, func() {
			if err := b.api.ChannelMessageDelete(m.ChannelID, sent.ID); err != nil {
				b.logger.Debug("deleting command reply failed", "error", err)
			}
		})
	}
}

// DeliverKey sends the key to the account by direct message. A refusal by
// Discord is reported as claim.ErrRecipientRefused.
func (b *Bot) DeliverKey(ctx context.Context, accountID string, d claim.Delivery) error {
	dm, err := b.api.UserChannelCreate(accountID, discordgo.WithContext(ctx))
	if err != nil {
		return classifyDeliveryError(err)
	}
	if _, err := b.api.ChannelMessageSendEmbed(dm.ID, deliveryEmbed(b.prompt, d, b.now()), discordgo.WithContext(ctx)); err != nil {
		return classifyDeliveryError(err)
	}
	return nil
}

// PostClaimPrompt posts the claim invitation into the named text channel.
func (b *Bot) PostClaimPrompt(ctx context.Context, ref admin.ChannelRef) error {
	channels, err := b.api.GuildChannels(ref.Guild, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("listing channels: %w", err)
	}

	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == ref.Name {
			if _, err := b.api.ChannelMessageSendComplex(ch.ID, promptMessage(b.prompt, b.now()), discordgo.WithContext(ctx)); err != nil {
				return fmt.Errorf("posting claim prompt: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", admin.ErrChannelNotFound, ref)
}

// classifyDeliveryError maps Discord's "cannot send messages to this user"
// and other 403 responses onto claim.ErrRecipientRefused.
func classifyDeliveryError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
			return fmt.Errorf("%w: %w", claim.ErrRecipientRefused, err)
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %w", claim.ErrRecipientRefused, err)
		}
	}
	return err
}

// interactionUser returns the clicking user for guild and DM interactions.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// displayName prefers the guild nickname, then the global display name.
func displayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && strings.TrimSpace(m.Nick) != "" {
		return m.Nick
	}
	if strings.TrimSpace(u.GlobalName) != "" {
		return u.GlobalName
	}
	return u.Username
}
