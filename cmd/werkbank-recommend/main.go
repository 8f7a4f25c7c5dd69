// cmd/werkbank-recommend runs one recommendation request against the
// configured backend and prints the ranked results. It exists for local
// debugging and operational smoke checks; the production entry point is the
// engine's Recommend API consumed by the quotation service.
//
// Usage:
//
//	werkbank-recommend [-user u1] [-anchors p1,p2] [-safety-critical] "requirement text" ...
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/werkbank/werkbank/internal/config"
	"github.com/werkbank/werkbank/internal/engine"
	"github.com/werkbank/werkbank/internal/storage/postgres"
	"github.com/werkbank/werkbank/internal/storage/sqlite"
	"github.com/werkbank/werkbank/pkg/types"
)

func main() {
	log.SetOutput(os.Stderr)

	userID := flag.String("user", "", "user ID for collaborative filtering")
	anchors := flag.String("anchors", "", "comma-separated product IDs already in the project")
	skill := flag.String("skill", "", "user skill level: beginner, intermediate, advanced")
	safetyCritical := flag.Bool("safety-critical", false, "flag the request as safety-critical")
	flag.Parse()

	requirements := flag.Args()
	if len(requirements) == 0 {
		fmt.Fprintln(os.Stderr, `usage: werkbank-recommend [flags] "requirement text" ...`)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("werkbank-recommend: %v", err)
	}

	recommender, closeStore, err := buildRecommender(cfg)
	if err != nil {
		log.Fatalf("werkbank-recommend: %v", err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uc := types.UserContext{
		UserID:         *userID,
		SkillLevel:     types.SkillLevel(*skill),
		SafetyCritical: *safetyCritical,
	}
	if *anchors != "" {
		uc.AnchorProducts = strings.Split(*anchors, ",")
	}

	results, err := recommender.Recommend(ctx, requirements, uc)
	if err != nil {
		log.Fatalf("werkbank-recommend: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("no recommendations: requirements matched no known category")
		return
	}

	for i, r := range results {
		fmt.Printf("%2d. %s (%s)  score=%.4f  compatibility=%s  safety=%s\n",
			i+1, r.Name, r.ProductID, r.HybridScore, r.CompatibilityStatus, r.SafetyRating)
		for _, note := range r.Rationale {
			fmt.Printf("      - %s\n", note)
		}
	}
}

// buildRecommender opens the configured backend and wires the engine.
func buildRecommender(cfg *config.Config) (*engine.Recommender, func(), error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		rec, err := engine.NewRecommender(cfg, engine.Stores{
			Keywords:     store,
			Catalog:      store,
			Interactions: store,
			Graph:        store,
		})
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return rec, func() { store.Close() }, nil
	default:
		store, err := sqlite.New(filepath.Join(cfg.Storage.DataPath, "werkbank.db"))
		if err != nil {
			return nil, nil, err
		}
		rec, err := engine.NewRecommender(cfg, engine.Stores{
			Keywords:     store,
			Catalog:      store,
			Interactions: store,
			Graph:        store,
		})
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return rec, func() { store.Close() }, nil
	}
}
