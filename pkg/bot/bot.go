// Package bot wires the budget tracker to Discord slash commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/api"
)

// replier sends interaction responses. Split from the session so the command
// handlers can run without a gateway connection in tests.
type replier interface {
	reply(i *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags, components []discordgo.MessageComponent)
	followupEphemeral(i *discordgo.InteractionCreate, content string)
}

// Bot owns the Discord session and dispatches slash commands to the store.
type Bot struct {
	session      *discordgo.Session
	replies      replier
	store        api.Store
	allowed      map[string]struct{}
	confirms     *ConfirmManager
	baseCurrency string
	logger       *slog.Logger
}

// New creates a bot around an authenticated Discord session. The allowed set
// is the authorization gate: callers outside it are rejected before any store
// call runs.
func New(token string, store api.Store, allowed map[string]struct{}, baseCurrency string, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	b := &Bot{
		session:      session,
		replies:      &sessionReplier{session: session, logger: logger},
		store:        store,
		allowed:      allowed,
		confirms:     NewConfirmManager(),
		baseCurrency: baseCurrency,
		logger:       logger,
	}
	session.AddHandler(b.onInteraction)

	return b, nil
}

// Run opens the gateway connection, registers the slash commands, and blocks
// until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	defer b.session.Close()

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}

	b.logger.Info("bot started", "user", b.session.State.User.Username)
	<-ctx.Done()

	b.logger.Info("bot stopping")
	return ctx.Err()
}

func (b *Bot) registerCommands() error {
	optionalString := func(name, description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        name,
			Description: description,
		}
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "spent",
			Description: "Log an expense",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "amount",
					Description: "Amount spent",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "currency",
					Description: "Currency code",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "Expense description",
					Required:    true,
				},
			},
		},
		{
			Name:        "total",
			Description: "View total spent in " + b.baseCurrency,
			Options: []*discordgo.ApplicationCommandOption{
				optionalString("location", "(Optional) View total spent in a specific location"),
				optionalString("group_by", "(Optional) Group by 'yyyy' or 'mm/yy', or filter by a year (2025) or month/year (05/25)"),
			},
		},
		{
			Name:        "breakdown",
			Description: "View expense breakdown by location",
			Options: []*discordgo.ApplicationCommandOption{
				optionalString("location", "(Optional) Show breakdown for a specific location"),
				optionalString("group_by", "(Optional) Group by 'yyyy' or 'mm/yy', or filter by a year (2025) or month/year (05/25)"),
			},
		},
		{
			Name:        "location",
			Description: "Set or view your current location",
			Options: []*discordgo.ApplicationCommandOption{
				optionalString("place", "(Optional) Set current place"),
			},
		},
		{
			Name:        "delete_expense",
			Description: "Delete an expense by its ID with confirmation",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "expense_id",
					Description: "The ID of the expense to delete",
					Required:    true,
				},
			},
		},
		{
			Name:        "list_expenses",
			Description: "List all expenses or by specific filters",
			Options: []*discordgo.ApplicationCommandOption{
				optionalString("filter", "(Optional) Filter by a year (2025) or month/year (05/25)"),
			},
		},
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commands)
	return err
}

func (b *Bot) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.onCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.onComponent(i)
	default:
	}
}

func (b *Bot) onCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	if _, ok := b.allowed[userID]; !ok {
		b.logger.Warn("received request from unauthorized user",
			"user_id", userID,
			"command", i.ApplicationCommandData().Name,
		)
		b.respondEphemeral(i, msgNotAllowed)
		return
	}

	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)

	b.logger.Info("handling command",
		"command", data.Name,
		"user_id", userID,
	)

	switch data.Name {
	case "spent":
		b.handleSpent(ctx, i, userID, opts)
	case "total":
		b.handleTotal(ctx, i, userID, opts)
	case "breakdown":
		b.handleBreakdown(ctx, i, userID, opts)
	case "location":
		b.handleLocation(ctx, i, userID, opts)
	case "delete_expense":
		b.handleDelete(ctx, i, userID, opts)
	case "list_expenses":
		b.handleList(ctx, i, userID, opts)
	default:
		b.logger.Warn("unknown command", "command", data.Name)
	}
}

// interactionUserID extracts the caller identity regardless of whether the
// interaction arrived from a guild channel or a DM.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (b *Bot) respond(i *discordgo.InteractionCreate, content string) {
	b.replies.reply(i, content, 0, nil)
}

func (b *Bot) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	b.replies.reply(i, content, discordgo.MessageFlagsEphemeral, nil)
}

func (b *Bot) respondWith(i *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags, components []discordgo.MessageComponent) {
	b.replies.reply(i, content, flags, components)
}

func (b *Bot) followupEphemeral(i *discordgo.InteractionCreate, content string) {
	b.replies.followupEphemeral(i, content)
}

// sessionReplier answers interactions through the live Discord session.
type sessionReplier struct {
	session *discordgo.Session
	logger  *slog.Logger
}

func (r *sessionReplier) reply(i *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags, components []discordgo.MessageComponent) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Flags:      flags,
			Components: components,
		},
	})
	if err != nil {
		r.logger.Error("failed to respond to interaction", "error", err)
	}
}

func (r *sessionReplier) followupEphemeral(i *discordgo.InteractionCreate, content string) {
	_, err := r.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		r.logger.Error("failed to send followup", "error", err)
	}
}
