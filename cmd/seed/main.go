// Command seed fills the threads database with demo data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"threads/internal/config"
	"threads/internal/database"
	"threads/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	users := flag.Int("users", 20, "Number of users to create")
	threads := flag.Int("threads", 60, "Number of top-level threads to create")
	replies := flag.Int("replies", 120, "Number of replies to create")
	maxDays := flag.Int("days", 30, "Spread created_at over this many past days")
	clean := flag.Bool("clean", false, "Delete all threads and users before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	fixture := flag.String("fixture", "", "Apply a YAML fixture instead of random data")
	flag.Parse()

	ctx := context.Background()

	// Validate the fixture before touching the database.
	var fx *seed.Fixture
	if *fixture != "" {
		var err error
		if fx, err = seed.LoadFixtureFile(*fixture); err != nil {
			return fmt.Errorf("load fixture: %w", err)
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	var summary *seed.Summary
	if fx != nil {
		summary, err = seed.ApplyFixture(ctx, db, fx)
	} else {
		summary, err = seed.Seed(ctx, db, seed.Options{
			Users:   *users,
			Threads: *threads,
			Replies: *replies,
			MaxDays: *maxDays,
			DryRun:  *dryRun,
			Clean:   *clean,
		})
	}
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	log.Printf("seeded %d users, %d threads, %d replies", summary.Users, summary.Threads, summary.Replies)
	return nil
}
