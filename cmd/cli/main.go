package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/app"
	"github.com/dvloznov/lifeledger/internal/config"
	"github.com/dvloznov/lifeledger/internal/finance"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/dvloznov/lifeledger/internal/notionsync"
	"github.com/dvloznov/lifeledger/internal/warehouse"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "export":
		runExport(log)
	case "backup":
		runBackup(log)
	case "list-backups":
		runListBackups(log)
	case "restore":
		runRestore(log)
	case "sync-notion":
		runSyncNotion(log)
	case "report":
		runReport(log)
	case "seed-categories":
		runSeedCategories(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Lifeledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  export           Export transactions to the BigQuery warehouse")
	fmt.Println("  backup           Write a snapshot of a user's data to GCS")
	fmt.Println("  list-backups     List a user's snapshots")
	fmt.Println("  restore          Restore a user from a snapshot")
	fmt.Println("  sync-notion      Mirror a user's transactions into Notion")
	fmt.Println("  report           Print monthly income and expense totals")
	fmt.Println("  seed-categories  Create the default categories for a user")
	fmt.Println("  help             Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// setup loads configuration and wires the services for one command.
func setup(log zerolog.Logger, timeout time.Duration, mutate func(*config.Config)) (context.Context, *app.App, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if mutate != nil {
		mutate(cfg)
	}
	log = logger.Configure(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	return ctx, a, func() {
		_ = a.Close()
		cancel()
	}
}

// targetUsers resolves -user / -all into user ids.
func targetUsers(ctx context.Context, log zerolog.Logger, a *app.App, user string, all bool) []string {
	switch {
	case all:
		ids, err := a.UserIDs(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list users")
		}
		return ids
	case user != "":
		return []string{user}
	default:
		log.Fatal().Msg("Error: -user or -all is required")
		return nil
	}
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	user := fs.String("user", "", "User ID to export")
	all := fs.Bool("all", false, "Export every user")
	fs.Parse(os.Args[2:])

	ctx, a, done := setup(log, 10*time.Minute, nil)
	defer done()

	for _, id := range targetUsers(ctx, log, a, *user, *all) {
		exportID, err := a.ExportUser(ctx, id)
		if err != nil {
			log.Fatal().Err(err).Str("user_id", id).Msg("Export failed")
		}
		fmt.Printf("%s\texport %s\n", id, exportID)
	}
}

func runBackup(log zerolog.Logger) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	user := fs.String("user", "", "User ID to back up")
	all := fs.Bool("all", false, "Back up every user")
	fs.Parse(os.Args[2:])

	ctx, a, done := setup(log, 10*time.Minute, nil)
	defer done()

	for _, id := range targetUsers(ctx, log, a, *user, *all) {
		uri, err := a.Backups.Backup(ctx, id)
		if err != nil {
			log.Fatal().Err(err).Str("user_id", id).Msg("Backup failed")
		}
		fmt.Printf("%s\t%s\n", id, uri)
	}
}

func runListBackups(log zerolog.Logger) {
	fs := flag.NewFlagSet("list-backups", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	ctx, a, done := setup(log, time.Minute, nil)
	defer done()

	names, err := a.Backups.List(ctx, *user)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list backups")
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func runRestore(log zerolog.Logger) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	user := fs.String("user", "", "User ID to restore (required)")
	from := fs.String("from", "", "Snapshot object name or gs:// URI (defaults to the latest)")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	ctx, a, done := setup(log, 10*time.Minute, nil)
	defer done()

	ref := *from
	if ref == "" {
		latest, err := a.Backups.Latest(ctx, *user)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to find latest backup")
		}
		ref = latest
	}

	snap, err := a.Backups.Restore(ctx, *user, ref)
	if err != nil {
		log.Fatal().Err(err).Str("ref", ref).Msg("Restore failed")
	}

	fmt.Printf("Restored %s from %s (taken %s)\n", *user, ref, snap.CreatedAt.Format(time.RFC3339))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	counts := snap.Counts()
	colls := make([]string, 0, len(counts))
	for c := range counts {
		colls = append(colls, c)
	}
	sort.Strings(colls)
	for _, c := range colls {
		fmt.Fprintf(w, "  %s\t%d\n", c, counts[c])
	}
	w.Flush()
}

func runSyncNotion(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	user := fs.String("user", "", "User ID to sync")
	all := fs.Bool("all", false, "Sync every user")
	notionToken := fs.String("notion-token", "", "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := fs.String("notion-db-id", "", "Notion database ID (or set NOTION_DB_ID env)")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(os.Args[2:])

	ctx, a, done := setup(log, 10*time.Minute, func(cfg *config.Config) {
		if *notionToken != "" {
			cfg.NotionToken = *notionToken
		}
		if *notionDBID != "" {
			cfg.NotionDBID = *notionDBID
		}
	})
	defer done()

	for _, id := range targetUsers(ctx, log, a, *user, *all) {
		res, err := a.SyncNotion(ctx, id, *dryRun)
		if err != nil {
			log.Fatal().Err(err).Str("user_id", id).Msg("Sync failed")
		}
		printSyncResult(id, res, *dryRun)
	}
}

func printSyncResult(userID string, res notionsync.Result, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "[DRY RUN] "
	}
	fmt.Printf("%s%s: created %d, updated %d, archived %d, skipped %d, failed %d\n",
		prefix, userID, res.Created, res.Updated, res.Archived, res.Skipped, res.Failed)
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	fromStr := fs.String("from", "", "First month, YYYY-MM (defaults to 11 months ago)")
	toStr := fs.String("to", "", "Last month, YYYY-MM (defaults to this month)")
	local := fs.Bool("local", false, "Compute from the document store instead of the warehouse")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: -user is required")
	}

	to := civil.DateOf(time.Now())
	if *toStr != "" {
		to = parseMonth(log, "to", *toStr)
	}
	from := civil.Date{Year: to.Year - 1, Month: to.Month + 1, Day: 1}
	if to.Month == time.December {
		from = civil.Date{Year: to.Year, Month: time.January, Day: 1}
	}
	if *fromStr != "" {
		from = parseMonth(log, "from", *fromStr)
	}

	ctx, a, done := setup(log, 5*time.Minute, nil)
	defer done()

	var totals []warehouse.MonthlyTotal
	if a.Warehouse != nil && !*local {
		var err error
		totals, err = a.Warehouse.MonthlyTotals(ctx, *user, from, to)
		if err != nil {
			log.Fatal().Err(err).Msg("Report query failed")
		}
	} else {
		txs, err := a.Finance.Transactions.List(ctx, *user, finance.TransactionFilter{})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list transactions")
		}
		totals = warehouse.LocalMonthlyTotals(txs, from, to)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Month\tIncome\tExpense\tBalance\t")
	for _, t := range totals {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t\n", t.Month, t.Income, t.Expense, t.Balance)
	}
	w.Flush()
}

func parseMonth(log zerolog.Logger, name, s string) civil.Date {
	d, err := civil.ParseDate(s + "-01")
	if err != nil {
		log.Fatal().Err(err).Str(name, s).Msgf("Error: invalid -%s, expected YYYY-MM", name)
	}
	return d
}

func runSeedCategories(log zerolog.Logger) {
	fs := flag.NewFlagSet("seed-categories", flag.ExitOnError)
	user := fs.String("user", "", "User ID to seed")
	all := fs.Bool("all", false, "Seed every user")
	fs.Parse(os.Args[2:])

	ctx, a, done := setup(log, time.Minute, nil)
	defer done()

	for _, id := range targetUsers(ctx, log, a, *user, *all) {
		n, err := a.Finance.Categories.SeedDefaults(ctx, id)
		if err != nil {
			log.Fatal().Err(err).Str("user_id", id).Msg("Seeding failed")
		}
		fmt.Printf("%s\t%d categories created\n", id, n)
	}
}
