package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/app"
	"github.com/vanhoc/mocktest/internal/config"
	"github.com/vanhoc/mocktest/internal/deeplink"
	"github.com/vanhoc/mocktest/internal/logger"
	"github.com/vanhoc/mocktest/internal/view"
)

func main() {
	var (
		attemptID int64
		testID    int64
		link      string
		history   bool
		limit     int
	)
	flag.Int64Var(&attemptID, "attempt", 0, "Finalized attempt id")
	flag.Int64Var(&testID, "test", 0, "Mock test id, fetched alongside the attempt when given")
	flag.StringVar(&link, "url", "", "Deep link carrying attemptId and testId")
	flag.BoolVar(&history, "history", false, "List archived results of the logged-in account")
	flag.IntVar(&limit, "limit", 20, "Number of archived results to list")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if link != "" {
		l, err := deeplink.Parse(link)
		if err != nil {
			log.Fatal().Err(err).Str("url", link).Msg("Invalid link")
		}
		if attemptID == 0 {
			attemptID = l.AttemptID
		}
		if testID == 0 {
			testID = l.TestID
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	if history {
		if err := listHistory(ctx, a, limit); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if attemptID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: review -attempt <id> [-test <id>] | -url <link> | -history")
		os.Exit(2)
	}

	_, err = a.NewReviewService().Load(ctx, attemptID, testID, view.ReviewStages(os.Stdout))
	if err != nil {
		fmt.Fprintln(os.Stderr, apierr.UserMessage(err))
		os.Exit(1)
	}
}

func listHistory(ctx context.Context, a *app.App, limit int) error {
	if a.Archive == nil {
		return fmt.Errorf("result archive is not configured (ARCHIVE_DATABASE_URL)")
	}
	id, err := a.Tokens.Identity(ctx)
	if err != nil {
		return fmt.Errorf("%s", apierr.UserMessage(err))
	}

	records, err := a.Archive.ListByAccount(ctx, id.AccountID, limit)
	if err != nil {
		return fmt.Errorf("list archived results: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No archived results.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTEMPT\tTEST\tSCORE\tPERCENT\tFINISHED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\t%d/%d\t%d%%\t%s\n",
			r.AttemptID, r.MockTestID, r.AttemptPoint, r.MaxPoint, r.Percent, r.FinishedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
