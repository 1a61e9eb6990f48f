package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/app"
	"github.com/vanhoc/mocktest/internal/config"
	"github.com/vanhoc/mocktest/internal/logger"
	"golang.org/x/term"
)

func main() {
	var (
		email  string
		logout bool
	)
	flag.StringVar(&email, "email", "", "Account email")
	flag.BoolVar(&logout, "logout", false, "Forget the stored token")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.RequestTimeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	if logout {
		if err := a.Auth.Logout(ctx); err != nil {
			log.Fatal().Err(err).Msg("Logout failed")
		}
		fmt.Println("Logged out.")
		return
	}

	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Print("Email: ")
		line, _ := reader.ReadString('\n')
		email = strings.TrimSpace(line)
	}

	password, err := readPassword(reader)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read password")
	}

	id, err := a.Auth.Login(ctx, email, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, loginMessage(err))
		os.Exit(1)
	}

	expires := "never"
	if id.Claims.ExpiresAt != nil {
		expires = id.Claims.ExpiresAt.Local().Format(time.RFC1123)
	}
	fmt.Printf("Logged in as account %d (token expires %s).\n", id.AccountID, expires)
}

// readPassword prompts without echo on a terminal and falls back to a
// plain line read for piped input.
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func loginMessage(err error) string {
	var apiErr *apierr.Error
	if apierr.KindOf(err) == apierr.KindAuthRequired {
		return "Invalid email or password."
	}
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		parts := make([]string, 0, len(apiErr.Fields))
		for field, msg := range apiErr.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
		}
		sort.Strings(parts)
		return strings.Join(parts, "\n")
	}
	return apierr.UserMessage(err)
}
