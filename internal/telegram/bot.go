// Package telegram exposes the shopping list engine as a Telegram bot. It
// receives updates over a webhook and maps each chat to its own list
// session.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/app"
	"lazyrecipes/internal/config"
	"lazyrecipes/internal/recipe"
	"lazyrecipes/internal/shoppinglist"
)

const maxPromotionsShown = 25

// Bot wraps the Telegram API and the application facade.
type Bot struct {
	api *tgbotapi.BotAPI
	app *app.App
	cfg *config.Config
}

// NewBot initializes the Telegram bot and registers the webhook.
func NewBot(cfg *config.Config, application *app.App) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("Telegram bot authorized")

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("failed to build webhook config: %w", err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		log.Info().Str("response", resp.Description).Msg("Webhook registered")
	}

	return &Bot{api: api, app: application, cfg: cfg}, nil
}

// HandleWebhook is the HTTP handler for Telegram updates.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse telegram update")
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		log.Warn().Int64("userId", update.Message.From.ID).Str("username", update.Message.From.UserName).
			Msg("Unauthorized telegram access attempt")
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	if len(b.cfg.TelegramAllowedUserIDs) == 0 {
		return true
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// chatSession is the snapshot session key for a chat.
func chatSession(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	command, args := splitCommand(msg.Text)

	switch command {
	case "/start", "/help":
		b.send(msg.Chat.ID, helpText)
	case "/promotions":
		b.handlePromotions(msg.Chat.ID)
	case "/recipes":
		b.handleRecipes(ctx, msg.Chat.ID, args)
	case "/list":
		b.handleList(ctx, msg.Chat.ID, args)
	case "/remove":
		b.handleRemove(ctx, msg.Chat.ID, args)
	case "/reset":
		b.handleReset(ctx, msg.Chat.ID)
	default:
		b.send(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	command, args, _ := strings.Cut(text, " ")
	// Strip the @botname suffix of group commands.
	command, _, _ = strings.Cut(command, "@")
	return command, strings.TrimSpace(args)
}

const helpText = `🛒 *LazyRecipes*

/promotions — current grocery deals
/recipes [n] — generate n recipes from the deals
/list 1,3 — build a shopping list from recipes
/remove <item-id> — drop an item from the list
/reset — start over`

func (b *Bot) handlePromotions(chatID int64) {
	promotions := b.app.Catalog().Promotions()
	if len(promotions) == 0 {
		b.send(chatID, "No promotions loaded yet.")
		return
	}
	if len(promotions) > maxPromotionsShown {
		promotions = promotions[:maxPromotionsShown]
	}

	var sb strings.Builder
	sb.WriteString("🏷 *Current Promotions*\n\n")
	for _, p := range promotions {
		fmt.Fprintf(&sb, "• %s — $%.2f/%s (%s) at %s\n", p.Item, p.Price, p.Unit, p.Discount, p.Store)
	}
	b.send(chatID, sb.String())
}

func (b *Bot) handleRecipes(ctx context.Context, chatID int64, args string) {
	numRecipes := 0
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil {
			numRecipes = n
		}
	}

	b.send(chatID, "🧑‍🍳 *Thinking...* \n(Generating recipes from current deals)")

	recipes, err := b.app.GenerateRecipes(ctx, numRecipes, recipe.Preferences{})
	if err != nil {
		log.Error().Err(err).Msg("Recipe generation failed")
		b.send(chatID, "❌ Recipe generation failed. Try again later.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🍽 *Recipe Ideas*\n\n")
	for i, r := range recipes {
		fmt.Fprintf(&sb, "*%d. %s* (%s, serves %d)\n_%s_\n\n", i+1, r.Name, r.CookingTime, r.Servings, r.Description)
	}
	sb.WriteString("Reply /list with the numbers you want, e.g. `/list 1,3`.")
	b.send(chatID, sb.String())
}

func (b *Bot) handleList(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.showList(ctx, chatID)
		return
	}

	ids, err := resolveRecipeIDs(b.app.Recipes(), args)
	if err != nil {
		b.send(chatID, "❌ "+err.Error())
		return
	}

	res, err := b.app.BuildShoppingList(ctx, chatSession(chatID), ids)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build shopping list")
		b.send(chatID, "❌ Could not build the shopping list: "+err.Error())
		return
	}

	b.send(chatID, formatShoppingList(res))
}

// resolveRecipeIDs accepts "1,3" style indices into the generated batch as
// well as raw recipe identifiers.
func resolveRecipeIDs(recipes []recipe.Recipe, args string) ([]string, error) {
	var ids []string
	for _, part := range strings.Split(args, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n < 1 || n > len(recipes) {
				return nil, fmt.Errorf("no recipe number %d; generate recipes with /recipes first", n)
			}
			ids = append(ids, recipes[n-1].ID)
			continue
		}
		ids = append(ids, part)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("pick at least one recipe, e.g. /list 1,3")
	}
	return ids, nil
}

func (b *Bot) showList(ctx context.Context, chatID int64) {
	store, ok := b.app.ShoppingList(ctx, chatSession(chatID))
	if !ok || store.Len() == 0 {
		b.send(chatID, "Your shopping list is empty. Build one with `/list 1,3`.")
		return
	}
	b.send(chatID, formatShoppingList(store.Result()))
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.send(chatID, "Tell me which item, e.g. `/remove item-1-honey`.")
		return
	}

	store, ok := b.app.ShoppingList(ctx, chatSession(chatID))
	if !ok {
		b.send(chatID, "There is no shopping list yet. Build one with `/list 1,3`.")
		return
	}

	if !store.Remove(args) {
		b.send(chatID, fmt.Sprintf("No item `%s` on the list.", args))
		return
	}
	b.send(chatID, formatShoppingList(store.Result()))
}

func (b *Bot) handleReset(ctx context.Context, chatID int64) {
	b.app.ResetShoppingList(ctx, chatSession(chatID))
	b.send(chatID, "🧹 Shopping list cleared.")
}

func formatShoppingList(res shoppinglist.Result) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")

	for _, it := range res.ShoppingList {
		if it.IsPromotion && it.Promotion != nil {
			fmt.Fprintf(&sb, "🏷 *%s* — %s — $%.2f (%s at %s)\n", it.Item, it.Amount, it.Price, it.Promotion.Discount, it.Promotion.Store)
		} else {
			fmt.Fprintf(&sb, "• %s — %s — $%.2f\n", it.Item, it.Amount, it.Price)
		}
		fmt.Fprintf(&sb, "  `%s`\n", it.ID)
	}

	fmt.Fprintf(&sb, "\n*Total:* $%.2f", res.TotalCost)
	if res.EstimatedSavings > 0 {
		fmt.Fprintf(&sb, "  |  *You save:* $%.2f", res.EstimatedSavings)
	}
	sb.WriteString("\nRemove an item with `/remove <id>`.")
	return sb.String()
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chatId", chatID).Msg("Failed to send telegram message")
	}
}
