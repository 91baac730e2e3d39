package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/app"
	"lazyrecipes/internal/config"
	"lazyrecipes/internal/database"
	"lazyrecipes/internal/llm"
	"lazyrecipes/internal/metrics"
	"lazyrecipes/internal/promo"
	"lazyrecipes/internal/recipe"
	"lazyrecipes/internal/server"
	"lazyrecipes/internal/shoppinglist"
	"lazyrecipes/internal/snapshot"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "promotions":
		runPromotions(cfg)
	case "discover":
		runDiscover(ctx, cfg)
	case "generate":
		runGenerate(ctx, cfg, os.Args[2:])
	case "shopping-list":
		runShoppingList(ctx, cfg, os.Args[2:])
	case "admin-token":
		runAdminToken(cfg, os.Args[2:])
	case "usage":
		runUsage(cfg, os.Args[2:])
	case "metrics-cleanup":
		runMetricsCleanup(cfg, os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runPromotions(cfg *config.Config) {
	catalog, err := promo.LoadDir(cfg.PromotionsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load promotions")
	}

	fmt.Printf("%d promotions in %s\n\n", catalog.Len(), cfg.PromotionsDir)
	for _, p := range catalog.Promotions() {
		fmt.Printf("  %-30s $%.2f/%s  %s  (%s)\n", p.Item, p.Price, p.Unit, p.Discount, p.Store)
	}
}

func runDiscover(ctx context.Context, cfg *config.Config) {
	application := newApplication(ctx, cfg)
	defer application.Close()

	flyers, err := application.DiscoverFlyers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Flyer discovery failed")
	}

	fmt.Printf("Found %d grocery flyers:\n\n", len(flyers))
	for _, f := range flyers {
		fmt.Printf("  %-12s %s (%s)\n  %s\n\n", f.Store, f.Title, f.DateRange, f.URL)
	}
}

// runGenerate generates recipes from the current promotions and prints
// them.
func runGenerate(ctx context.Context, cfg *config.Config, args []string) {
	genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	numRecipes := genCmd.Int("n", 5, "Number of recipes to generate")
	dietary := genCmd.String("dietary", "", "Dietary preference, e.g. vegetarian")
	servings := genCmd.Int("servings", 4, "Servings per recipe")
	genCmd.Parse(args)

	application := newApplication(ctx, cfg)
	defer application.Close()

	recipes := generate(ctx, application, *numRecipes, *dietary, *servings)
	printRecipes(recipes)
}

// runShoppingList generates recipes and derives one shopping list from the
// selected ones (default: all of them). Single process, so selection is by
// position in the freshly generated batch.
func runShoppingList(ctx context.Context, cfg *config.Config, args []string) {
	listCmd := flag.NewFlagSet("shopping-list", flag.ExitOnError)
	numRecipes := listCmd.Int("n", 3, "Number of recipes to generate")
	dietary := listCmd.String("dietary", "", "Dietary preference, e.g. vegetarian")
	servings := listCmd.Int("servings", 4, "Servings per recipe")
	selection := listCmd.String("recipes", "", "Comma-separated recipe numbers to include (default all)")
	listCmd.Parse(args)

	application := newApplication(ctx, cfg)
	defer application.Close()

	recipes := generate(ctx, application, *numRecipes, *dietary, *servings)
	printRecipes(recipes)

	var ids []string
	if *selection == "" {
		for _, r := range recipes {
			ids = append(ids, r.ID)
		}
	} else {
		for _, part := range strings.Split(*selection, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 1 || n > len(recipes) {
				log.Fatal().Str("selection", part).Msg("Invalid recipe number")
			}
			ids = append(ids, recipes[n-1].ID)
		}
	}

	res, err := application.BuildShoppingList(ctx, "cli", ids)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build shopping list")
	}

	fmt.Println("\n=== SHOPPING LIST ===")
	printShoppingList(res)
}

func generate(ctx context.Context, application *app.App, numRecipes int, dietary string, servings int) []recipe.Recipe {
	if err := application.ReloadPromotions(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load promotions")
	}

	recipes, err := application.GenerateRecipes(ctx, numRecipes, recipe.Preferences{
		Dietary:  dietary,
		Servings: servings,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Recipe generation failed")
	}
	return recipes
}

func printRecipes(recipes []recipe.Recipe) {
	fmt.Println("=== RECIPES ===")
	for i, r := range recipes {
		fmt.Printf("%d. %s (%s, serves %d)\n   %s\n", i+1, r.Name, r.CookingTime, r.Servings, r.Description)
	}
}

func printShoppingList(res shoppinglist.Result) {
	for _, it := range res.ShoppingList {
		marker := " "
		if it.IsPromotion {
			marker = "*"
		}
		fmt.Printf("%s %-30s %-16s $%.2f\n", marker, it.Item, it.Amount, it.Price)
	}
	fmt.Printf("\nTotal: $%.2f   Estimated savings: $%.2f\n", res.TotalCost, res.EstimatedSavings)
}

func runAdminToken(cfg *config.Config, args []string) {
	tokenCmd := flag.NewFlagSet("admin-token", flag.ExitOnError)
	ttl := tokenCmd.Duration("ttl", time.Hour, "Token lifetime")
	tokenCmd.Parse(args)

	if cfg.AdminAPISecret == "" {
		log.Fatal().Msg("ADMIN_API_SECRET is not set")
	}

	token, err := server.NewAdminToken(cfg.AdminAPISecret, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to mint token")
	}
	fmt.Println(token)
}

func runUsage(cfg *config.Config, args []string) {
	usageCmd := flag.NewFlagSet("usage", flag.ExitOnError)
	days := usageCmd.Int("days", 7, "Days of history to show")
	usageCmd.Parse(args)

	store := openMetrics(cfg)
	usage, err := store.GetDailyUsage(*days)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read usage")
	}

	if len(usage) == 0 {
		fmt.Println("No model usage recorded.")
		return
	}
	for _, d := range usage {
		fmt.Printf("%s  %6d prompt  %6d completion  (%d calls)\n",
			d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution)
	}
}

func runMetricsCleanup(cfg *config.Config, args []string) {
	cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
	cleanupCmd.Parse(args)

	store := openMetrics(cfg)
	affected, err := store.Cleanup(*days)
	if err != nil {
		log.Fatal().Err(err).Msg("Cleanup failed")
	}
	fmt.Printf("Removed %d old metric records.\n", affected)
}

func openMetrics(cfg *config.Config) *metrics.Store {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	return metrics.NewStore(db.SQL)
}

// newApplication builds a one-shot application with in-memory snapshots;
// CLI runs do not persist lists across invocations.
func newApplication(ctx context.Context, cfg *config.Config) *app.App {
	textGen, err := llm.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize model client")
	}

	keeper := snapshot.NewKeeper(snapshot.NewMemoryStore(), cfg.SnapshotMaxAge, cfg.SnapshotBuster)
	return app.NewApp(cfg, textGen, keeper, nil)
}

func printUsage() {
	fmt.Println("Usage: lazyrecipes <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  promotions         List the current promotion catalog")
	fmt.Println("  discover           Discover current grocery flyers")
	fmt.Println("  generate           Generate recipes from the current deals")
	fmt.Println("  shopping-list      Generate recipes and derive a shopping list")
	fmt.Println("  admin-token        Mint a bearer token for the scrape endpoint")
	fmt.Println("  usage              Show recent model token usage")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
