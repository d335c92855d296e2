package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"patrol-service/internal/config"
	"patrol-service/internal/db"
	"patrol-service/internal/logger"
	"patrol-service/internal/registry"
	"patrol-service/internal/repository"
)

// registry-import loads a vehicle registry CSV into the patrol_vehicles table.
// Existing rows are matched by normalized VRN and refreshed.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: registry-import <path-to-csv>")
		fmt.Println("Columns: vrn, make, color, owner, license_expiry, insurance_status, is_stolen, is_wanted")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Environment)

	if cfg.Lookup.Backend != config.LookupBackendPostgres {
		log.Fatal().Str("lookup_backend", cfg.Lookup.Backend).Msg("registry import needs the postgres backend")
	}

	file, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatal().Err(err).Str("path", os.Args[1]).Msg("failed to open file")
	}
	defer file.Close()

	vehicles, skipped, err := registry.ReadVehicles(file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read registry csv")
	}
	for _, rowErr := range skipped {
		log.Warn().Int("line", rowErr.Line).Err(rowErr.Err).Msg("row skipped")
	}

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	repo := repository.NewPatrolRepository(database)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var imported, failed int
	for _, v := range vehicles {
		if err := repo.UpsertVehicle(ctx, v); err != nil {
			failed++
			log.Error().Err(err).Str("vrn", v.VRN).Msg("failed to import vehicle")
			continue
		}
		imported++
	}

	log.Info().
		Int("imported", imported).
		Int("failed", failed).
		Int("skipped", len(skipped)).
		Msg("registry import finished")

	if failed > 0 {
		os.Exit(1)
	}
}
