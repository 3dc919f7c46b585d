package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"localhire/internal/config"
	"localhire/internal/database"
	"localhire/internal/domain"
	"localhire/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type contractorsFile struct {
	Contractors []models.Contractor `yaml:"contractors"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to service config")
		filePath   = flag.String("file", "configs/contractors.yaml", "path to contractors yaml")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		return fmt.Errorf("read contractors: %w", err)
	}
	var file contractorsFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse contractors: %w", err)
	}
	if len(file.Contractors) == 0 {
		return errors.New("no contractors in yaml")
	}
	if err = config.ValidateContractors(file.Contractors); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	created, updated := 0, 0
	for i := range file.Contractors {
		c := file.Contractors[i]
		_, err = db.GetContractor(ctx, c.ID)
		switch {
		case err == nil:
			updated++
		case errors.Is(err, domain.ErrNotFound):
			created++
		default:
			return fmt.Errorf("get %s: %w", c.ID, err)
		}
		if err = db.UpsertContractor(ctx, &c); err != nil {
			return fmt.Errorf("upsert %s: %w", c.ID, err)
		}
	}

	logger.Info().Int("created", created).Int("updated", updated).Msg("contractors seeded")
	return nil
}
