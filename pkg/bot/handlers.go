package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/api"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/exchange"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/report"
)

func (b *Bot) handleSpent(ctx context.Context, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	amount := opts["amount"].FloatValue()
	currencyCode := stringOption(opts, "currency")
	description := stringOption(opts, "description")

	result, err := b.store.AddExpense(ctx, userID, amount, currencyCode, description)
	if err != nil {
		if errors.Is(err, exchange.ErrRateUnavailable) {
			b.respond(i, msgRatesDown)
			return
		}
		b.logger.Error("failed to add expense", "user_id", userID, "error", err)
		b.respond(i, msgInternalError)
		return
	}

	switch result.Outcome {
	case api.AddNoLocation:
		b.respond(i, msgNoLocation)
	case api.AddInvalidCurrency:
		b.respond(i, msgInvalidCurrency)
	case api.AddRecorded:
		b.respond(i, renderRecorded(result.Expense.Amount, result.Expense.Currency, result.Expense.Description, b.baseCurrency))
	}
}

func (b *Bot) handleTotal(ctx context.Context, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	location := stringOption(opts, "location")
	groupBy := stringOption(opts, "group_by")

	if groupBy == "" {
		total, err := b.store.TotalSpent(ctx, userID, location)
		if err != nil {
			b.logger.Error("failed to compute total", "user_id", userID, "error", err)
			b.respond(i, msgInternalError)
			return
		}
		b.respond(i, renderTotal(total, location, b.baseCurrency))
		return
	}

	if err := report.Validate(groupBy); err != nil {
		b.respond(i, msgInvalidPeriod)
		return
	}

	breakdown, err := b.store.Breakdown(ctx, userID, location, false)
	if err != nil {
		b.logger.Error("failed to fetch breakdown", "user_id", userID, "error", err)
		b.respond(i, msgInternalError)
		return
	}
	if len(breakdown) == 0 {
		b.respond(i, renderNoExpenses("💰", location))
		return
	}

	if report.IsGroupingLiteral(groupBy) {
		grouped, err := report.GroupByPeriod(breakdown, groupBy, location)
		if err != nil {
			b.respond(i, msgInvalidPeriod)
			return
		}
		b.respond(i, renderTotalByPeriod(grouped, location, b.baseCurrency))
		return
	}

	filtered, err := report.FilterByPeriod(breakdown, groupBy, location)
	if err != nil {
		b.respond(i, msgInvalidPeriod)
		return
	}
	if len(filtered) == 0 {
		b.respond(i, renderNoMatch("💰", groupBy))
		return
	}
	b.respond(i, renderTotalFiltered(filtered, groupBy, location, b.baseCurrency))
}

func (b *Bot) handleBreakdown(ctx context.Context, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	location := stringOption(opts, "location")
	groupBy := stringOption(opts, "group_by")

	if groupBy != "" {
		if err := report.Validate(groupBy); err != nil {
			b.respond(i, msgInvalidPeriod)
			return
		}
	}

	breakdown, err := b.store.Breakdown(ctx, userID, location, false)
	if err != nil {
		b.logger.Error("failed to fetch breakdown", "user_id", userID, "error", err)
		b.respond(i, msgInternalError)
		return
	}
	if len(breakdown) == 0 {
		b.respond(i, renderNoExpenses("📊", location))
		return
	}

	switch {
	case groupBy == "":
		b.respond(i, renderBreakdown(breakdown, location, b.baseCurrency))
	case report.IsGroupingLiteral(groupBy):
		grouped, err := report.GroupByPeriod(breakdown, groupBy, location)
		if err != nil {
			b.respond(i, msgInvalidPeriod)
			return
		}
		b.respond(i, renderBreakdownByPeriod(grouped, location, b.baseCurrency))
	default:
		filtered, err := report.FilterByPeriod(breakdown, groupBy, location)
		if err != nil {
			b.respond(i, msgInvalidPeriod)
			return
		}
		if len(filtered) == 0 {
			b.respond(i, renderNoMatch("📊", groupBy))
			return
		}
		b.respond(i, renderBreakdownFiltered(filtered, groupBy, b.baseCurrency))
	}
}

func (b *Bot) handleLocation(ctx context.Context, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	place := stringOption(opts, "place")

	if place == "" {
		location, ok, err := b.store.GetLocation(ctx, userID)
		if err != nil {
			b.logger.Error("failed to get location", "user_id", userID, "error", err)
			b.respond(i, msgInternalError)
			return
		}
		if !ok {
			b.respond(i, msgLocationUnset)
			return
		}
		b.respond(i, renderLocationCurrent(location))
		return
	}

	place = strings.ToLower(place)
	if err := b.store.SetLocation(ctx, userID, place); err != nil {
		b.logger.Error("failed to set location", "user_id", userID, "error", err)
		b.respond(i, msgInternalError)
		return
	}
	b.respond(i, renderLocationSet(place))
}

func (b *Bot) handleList(ctx context.Context, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	filter := stringOption(opts, "filter")

	if filter != "" && report.IsGroupingLiteral(filter) {
		b.respondEphemeral(i, msgInvalidFilter)
		return
	}

	breakdown, err := b.store.Breakdown(ctx, userID, "", true)
	if err != nil {
		b.logger.Error("failed to list expenses", "user_id", userID, "error", err)
		b.respond(i, msgInternalError)
		return
	}
	if len(breakdown) == 0 {
		b.respondEphemeral(i, renderNoExpenses("📊", ""))
		return
	}

	if filter != "" {
		filtered, err := report.FilterByPeriod(breakdown, filter, "")
		if err != nil {
			b.respondEphemeral(i, msgInvalidFilter)
			return
		}
		if len(filtered) == 0 {
			b.respondEphemeral(i, renderNoMatch("📊", filter))
			return
		}
		breakdown = filtered
	}

	b.respond(i, renderList(breakdown, filter, b.baseCurrency))
}

func (b *Bot) handleDelete(ctx context.Context, i *discordgo.InteractionCreate, userID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	expenseID := opts["expense_id"].IntValue()

	expense, err := b.store.GetExpenseByID(ctx, userID, expenseID)
	if err != nil {
		b.logger.Error("failed to look up expense", "user_id", userID, "expense_id", expenseID, "error", err)
		b.respondEphemeral(i, msgInternalError)
		return
	}
	if expense == nil {
		b.respondEphemeral(i, msgDeleteNotFound)
		return
	}

	if !b.confirms.Begin(userID, expenseID) {
		b.respondEphemeral(i, msgDeletePending)
		return
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Yes",
					Style:    discordgo.DangerButton,
					CustomID: confirmCustomID(userID, expenseID, true),
				},
				discordgo.Button{
					Label:    "No",
					Style:    discordgo.SecondaryButton,
					CustomID: confirmCustomID(userID, expenseID, false),
				},
			},
		},
	}
	b.respondWith(i, renderDeleteConfirm(expenseID, expense.Description), discordgo.MessageFlagsEphemeral, components)

	go b.awaitDeleteDecision(i, userID, expenseID)
}

// awaitDeleteDecision runs on its own goroutine: the original interaction has
// already been answered with the prompt, so the outcome lands as a followup.
func (b *Bot) awaitDeleteDecision(i *discordgo.InteractionCreate, userID string, expenseID int64) {
	ctx := context.Background()
	decision := b.confirms.Await(ctx, userID, expenseID, DefaultConfirmTimeout)

	switch decision {
	case DecisionTimedOut:
		b.followupEphemeral(i, msgDeleteTimedOut)
	case DecisionDeclined:
		b.followupEphemeral(i, msgDeleteCancelled)
	case DecisionConfirmed:
		deleted, err := b.store.DeleteExpense(ctx, userID, expenseID)
		if err != nil || !deleted {
			if err != nil {
				b.logger.Error("failed to delete expense", "user_id", userID, "expense_id", expenseID, "error", err)
			}
			b.followupEphemeral(i, msgDeleteFailed)
			return
		}
		b.logger.Info("expense deleted", "user_id", userID, "expense_id", expenseID)
		b.followupEphemeral(i, msgDeleteSuccess)
	}
}

const confirmPrefix = "delete_confirm"

func confirmCustomID(userID string, expenseID int64, confirmed bool) string {
	answer := "no"
	if confirmed {
		answer = "yes"
	}
	return fmt.Sprintf("%s:%s:%d:%s", confirmPrefix, userID, expenseID, answer)
}

func parseConfirmCustomID(customID string) (userID string, expenseID int64, confirmed bool, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 4 || parts[0] != confirmPrefix {
		return "", 0, false, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, false, false
	}
	return parts[1], id, parts[3] == "yes", true
}

func (b *Bot) onComponent(i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	ownerID, expenseID, confirmed, ok := parseConfirmCustomID(customID)
	if !ok {
		b.logger.Warn("unknown component interaction", "custom_id", customID)
		return
	}

	// Only the user who asked for the deletion may answer their own prompt.
	if interactionUserID(i) != ownerID {
		b.respondEphemeral(i, msgNotAllowed)
		return
	}

	b.confirms.Resolve(ownerID, expenseID, confirmed)

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		b.logger.Error("failed to acknowledge component interaction", "error", err)
	}
}
