// reliability runs maintenance jobs against the reliability store.
//
// Usage:
//
//	go run ./scripts/reliability recalc -model Products -id <foreign-key>
//	go run ./scripts/reliability recalc -model Products -all [-limit 100] [-offset 0]
//	go run ./scripts/reliability verify -model Products [-id <foreign-key>] [-limit 1000]
//
// recalc re-evaluates stored entity data with the current scoring profile and
// records a system change for every entity it touches. verify recomputes the
// checksum of stored log entries and exits non-zero if any do not match.
//
// Database connection: same config.yaml / PG* environment variables as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/config"
	"github.com/ekaya-inc/ekaya-reliability/pkg/database"
	"github.com/ekaya-inc/ekaya-reliability/pkg/logging"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
	"github.com/ekaya-inc/ekaya-reliability/pkg/repositories"
	"github.com/ekaya-inc/ekaya-reliability/pkg/scoring"
	"github.com/ekaya-inc/ekaya-reliability/pkg/services"
)

// actorService names this tool in the log entries it writes.
const actorService = "reliability-cli"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <recalc|verify> [flags]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  recalc -model M (-id FK | -all [-limit N] [-offset N])\n")
	fmt.Fprintf(os.Stderr, "  verify -model M [-id FK] [-limit N]\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "recalc":
		err = runRecalc(ctx, os.Args[2:])
	case "verify":
		err = runVerify(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", logging.SanitizeError(err))
		os.Exit(1)
	}
}

func runRecalc(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recalc", flag.ExitOnError)
	model := fs.String("model", "", "Model name (required)")
	id := fs.String("id", "", "Foreign key of a single entity")
	all := fs.Bool("all", false, "Recalculate every stored entity of the model")
	limit := fs.Int("limit", 100, "Page size when -all is set")
	offset := fs.Int("offset", 0, "Starting offset when -all is set")
	_ = fs.Parse(args)

	if *model == "" || (*id == "") == !*all {
		return errors.New("recalc needs -model and exactly one of -id or -all")
	}
	if *limit <= 0 || *limit > services.MaxVerifyLimit {
		*limit = services.MaxVerifyLimit
	}

	svc, cleanup, err := openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx = models.WithServiceProvenance(ctx, models.SourceSystem, actorService)

	if *id != "" {
		return recalcOne(ctx, svc, *model, *id)
	}

	var processed, failed int
	for page := *offset; ; page += *limit {
		summaries, err := svc.ListSummaries(ctx, *model, *limit, page)
		if err != nil {
			return fmt.Errorf("list summaries: %w", err)
		}
		for _, s := range summaries {
			processed++
			if err := recalcOne(ctx, svc, s.Model, s.ForeignKey); err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "  %s: %s\n", s.ForeignKey, logging.SanitizeError(err))
			}
		}
		if len(summaries) < *limit {
			break
		}
	}

	fmt.Printf("\nRecalculated %d entities, %d failed\n", processed-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d entities failed to recalculate", failed)
	}
	return nil
}

func recalcOne(ctx context.Context, svc services.ReliabilityService, model, fk string) error {
	entry, err := svc.Recalculate(ctx, model, fk)
	if err != nil {
		var validationErr *apperrors.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field == "source_data" {
			fmt.Printf("  %s: skipped (scores were not evaluated from entity data)\n", fk)
			return nil
		}
		return err
	}
	view := services.NewLogEntryView(entry)
	fmt.Printf("  %s: %s\n", fk, view.Summary)
	return nil
}

func runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	model := fs.String("model", "", "Model name (required)")
	id := fs.String("id", "", "Limit verification to one entity")
	limit := fs.Int("limit", services.MaxVerifyLimit, "Maximum entries to check")
	_ = fs.Parse(args)

	if *model == "" {
		return errors.New("verify needs -model")
	}

	svc, cleanup, err := openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.BulkVerify(ctx, *model, *id, *limit)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	for _, f := range result.Failures {
		fmt.Printf("  MISMATCH %s/%s log %s\n", result.Model, f.ForeignKey, f.LogID)
	}
	fmt.Printf("\nChecked %d entries: %d verified, %d failed\n", result.Checked, result.Verified, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d log entries failed checksum verification", result.Failed)
	}
	return nil
}

// openService builds a ReliabilityService with suggestions disabled.
func openService(ctx context.Context) (services.ReliabilityService, func(), error) {
	cfg, err := config.Load("cli")
	if err != nil {
		return nil, nil, err
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := logConfig.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: 4,
	})
	if err != nil {
		return nil, nil, err
	}

	profiles, err := scoring.LoadRegistry(cfg.Reliability.ProfilesPath)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	suggestions := services.NewSuggestionService(nil, nil, nil, services.SuggestionConfig{}, nil, logger)
	svc := services.NewReliabilityService(
		db,
		repositories.NewFieldScoreRepository(db),
		repositories.NewSummaryRepository(db),
		repositories.NewReliabilityLogRepository(db),
		profiles,
		suggestions,
		nil,
		logger,
	)

	cleanup := func() {
		db.Close()
		_ = logger.Sync()
	}
	return svc, cleanup, nil
}
