package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/app"
	"github.com/vanhoc/mocktest/internal/config"
	"github.com/vanhoc/mocktest/internal/deeplink"
	"github.com/vanhoc/mocktest/internal/logger"
	"github.com/vanhoc/mocktest/internal/service"
	"github.com/vanhoc/mocktest/internal/view"
)

const help = `Commands:
  n / p          next / previous question
  g <number>     go to question
  a <letter>     choose an option (a, b, c, ...)
  e <text>       type an essay answer
  s              save the essay answer
  f              finish and submit the attempt
  r              retry the failed action
  d              dismiss the error
  h              show this help
  q              quit`

func main() {
	var (
		testID int64
		link   string
	)
	flag.Int64Var(&testID, "test", 0, "Mock test id")
	flag.StringVar(&link, "url", "", "Deep link carrying testId")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if link != "" {
		l, err := deeplink.Parse(link)
		if err != nil {
			log.Fatal().Err(err).Str("url", link).Msg("Invalid link")
		}
		if testID == 0 {
			testID = l.TestID
		}
	}
	if testID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: taketest -test <id> | -url <link>")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── Initialize Stores & Clients ───────────────────────────────────
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()
	a.StartArchive()

	results := make(chan int64, 1)
	nav := service.NavigatorFunc(func(attemptID int64) {
		select {
		case results <- attemptID:
		default:
		}
	})
	session := a.NewSession(nav, nil)
	defer session.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	fmt.Fprintln(out, "Loading test...")
	out.Flush()
	if err := session.Open(ctx, testID); err != nil && !errors.Is(err, service.ErrSuperseded) {
		log.Debug().Err(err).Msg("Open failed")
	}

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	t := &terminal{session: session, out: out}
	t.render()

	for {
		select {
		case <-ctx.Done():
			return
		case attemptID := <-results:
			showReview(ctx, a, out, attemptID, testID)
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := t.handle(ctx, line); quit {
				return
			}
			select {
			case attemptID := <-results:
				showReview(ctx, a, out, attemptID, testID)
				return
			default:
			}
			t.render()
		}
	}
}

type terminal struct {
	session *service.Session
	out     *bufio.Writer
}

func (t *terminal) render() {
	fmt.Fprintln(t.out)
	view.Screen(t.out, t.session.Snapshot())
	fmt.Fprint(t.out, "> ")
	t.out.Flush()
}

func (t *terminal) handle(ctx context.Context, line string) (quit bool) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	s := t.session

	var err error
	switch cmd {
	case "":
	case "n":
		t.blurCurrent(ctx)
		s.Next()
	case "p":
		t.blurCurrent(ctx)
		s.Prev()
	case "g":
		n, convErr := strconv.Atoi(arg)
		if convErr != nil {
			fmt.Fprintln(t.out, "usage: g <number>")
			return false
		}
		t.blurCurrent(ctx)
		s.GoTo(n - 1)
	case "a":
		err = t.choose(ctx, arg)
	case "e":
		if q, ok := s.Snapshot().CurrentQuestion(); ok {
			err = s.EditEssay(q.ID, arg)
		}
	case "s":
		t.blurCurrent(ctx)
	case "f":
		t.blurCurrent(ctx)
		_, err = s.Finish(ctx)
	case "r":
		err = s.Retry(ctx)
	case "d":
		s.DismissBanner()
	case "h":
		fmt.Fprintln(t.out, help)
	case "q":
		t.blurCurrent(ctx)
		return true
	default:
		fmt.Fprintf(t.out, "unknown command %q, h for help\n", cmd)
	}

	if err != nil && s.Snapshot().Banner == nil {
		fmt.Fprintln(t.out, apierr.UserMessage(err))
	}
	return false
}

func (t *terminal) choose(ctx context.Context, arg string) error {
	v := t.session.Snapshot()
	q, ok := v.CurrentQuestion()
	if !ok || !q.IsChoice() {
		return service.ErrNotChoiceQuestion
	}
	if len(arg) != 1 || arg[0] < 'a' || int(arg[0]-'a') >= len(q.Options) {
		return service.ErrUnknownOption
	}
	return t.session.SelectOption(ctx, q.ID, q.Options[arg[0]-'a'].ID)
}

func (t *terminal) blurCurrent(ctx context.Context) {
	v := t.session.Snapshot()
	q, ok := v.CurrentQuestion()
	if !ok || q.IsChoice() || v.ReadOnly {
		return
	}
	_ = t.session.BlurEssay(ctx, q.ID)
}

func showReview(ctx context.Context, a *app.App, out *bufio.Writer, attemptID, testID int64) {
	fmt.Fprintln(out)
	_, err := a.NewReviewService().Load(ctx, attemptID, testID, view.ReviewStages(out))
	if err != nil {
		fmt.Fprintln(out, apierr.UserMessage(err))
	}
	out.Flush()
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- sc.Text()
	}
}
