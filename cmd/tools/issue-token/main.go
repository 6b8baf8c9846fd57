// Package main mints bearer tokens for the dashboard API.
//
// Tokens are signed with AUTH_SIGNING_SECRET and bind requests to a
// persistent profile. Without -user a fresh profile id is generated.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/sentiment-dashboard/internal/api"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
)

const errFmt = "%v\n"

var errNoSecret = errors.New("AUTH_SIGNING_SECRET is not set")

func main() {
	userID := flag.String("user", "", "Profile UUID (generated when empty)")
	ttl := flag.Duration("ttl", 0, "Token lifetime (defaults to AUTH_TOKEN_TTL)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *ttl <= 0 {
		*ttl = cfg.AuthTokenTTL
	}

	if err := issue(os.Stdout, cfg.AuthSigningSecret, *userID, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}
}

func issue(out io.Writer, secret, userID string, ttl time.Duration) error {
	if secret == "" {
		return errNoSecret
	}

	if userID == "" {
		userID = uuid.NewString()
	}

	token, err := api.NewAuthTokenService(secret, ttl).Generate(userID)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	fmt.Fprintf(out, "user:  %s\ntoken: %s\n", userID, token)

	return nil
}
