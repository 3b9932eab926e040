// Command userplan assigns a subscription plan to an account from the
// command line, for support and local development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hifarrer/NuSong-sub002/internal/infra"
	"github.com/hifarrer/NuSong-sub002/internal/sqlinline"
)

func main() {
	var (
		idFlag    string
		emailFlag string
		planFlag  string
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.StringVar(&planFlag, "plan", "", "plan name to assign (e.g. free, creator, studio)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	plan := strings.TrimSpace(strings.ToLower(planFlag))

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if plan == "" {
		exitWithError(errors.New("-plan is required"))
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "userplan")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		exitWithError(fmt.Errorf("connect database: %w", err))
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	if userID == "" {
		if err := runner.QueryRow(ctx, sqlinline.QSelectUserIDByEmail, email).Scan(&userID); err != nil {
			if infra.IsNoRows(err) {
				exitWithError(fmt.Errorf("no user with email %q", email))
			}
			exitWithError(fmt.Errorf("lookup user: %w", err))
		}
	}

	var id, userEmail, planName string
	if err := runner.QueryRow(ctx, sqlinline.QAssignUserPlan, userID, plan).Scan(&id, &userEmail, &planName); err != nil {
		if infra.IsNoRows(err) {
			exitWithError(fmt.Errorf("no user with id %q", userID))
		}
		exitWithError(fmt.Errorf("assign plan: %w", err))
	}

	fmt.Printf("assigned plan %s to %s (%s), billing period reset to current month\n", planName, userEmail, id)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
