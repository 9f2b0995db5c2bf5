package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"datahub-exporter/config"
	"datahub-exporter/dashboard"
	"datahub-exporter/models"
	"datahub-exporter/pipeline"
	"datahub-exporter/utils"
)

func main() {
	var (
		from         = flag.String("from", "", "start date, YYYY-MM-DD (required)")
		to           = flag.String("to", "", "end date, YYYY-MM-DD (required)")
		modeName     = flag.String("mode", "phone", "report mode: phone | email-relay | email-filtered | csv")
		relayChannel = flag.String("relay-channel", "", "channel name whose guest-relay domain applies (email-relay mode)")
		propsFile    = flag.String("properties", "", "optional file with '<pms> - <name>' lines; skips dashboard discovery")
	)
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Channel booking export starting ===")

	if err := validateDate(*from); err != nil {
		logger.Error("Invalid -from date: %v", err)
		os.Exit(2)
	}
	if err := validateDate(*to); err != nil {
		logger.Error("Invalid -to date: %v", err)
		os.Exit(2)
	}

	mode, err := parseMode(*modeName)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(2)
	}

	channels, err := config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		logger.Error("Channel config failed: %v", err)
		os.Exit(1)
	}

	logger.Info("Config: channels: %d | fetch concurrency: %d | discovery concurrency: %d | properties concurrency: %d",
		len(channels.Channels), cfg.FetchConcurrency, cfg.DiscoveryConcurrency, cfg.PropertyConcurrency)

	ctx := context.Background()

	properties, err := loadProperties(ctx, cfg, logger, *propsFile)
	if err != nil {
		logger.Error("Property discovery failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Found %d properties. Exporting bookings for %s .. %s (%s mode)",
		len(properties), *from, *to, mode)

	relay := *relayChannel
	if relay == "" && len(channels.Channels) > 0 {
		relay = channels.Channels[0].Name
	}

	p := pipeline.New(cfg, channels, logger)
	summary, err := p.Run(ctx, properties, *from, *to, mode, relay, func(done, total, saved int) {
		logger.Info("Progress: %d/%d properties, %d documents saved", done, total, saved)
	})
	if err != nil {
		logger.Error("Run failed: %v", err)
		os.Exit(1)
	}

	logger.Info("Documents saved: %d (from %d tokens across %d properties)",
		summary.DocumentsSaved, summary.TokensFound, summary.PropertiesDone)
	logger.Info("Reports written: %d | rows: %d | emails: %d",
		summary.ReportsWritten, summary.Rows, summary.Emails)

	fmt.Printf("\n  Done. Archive written to %s\n\n", cfg.ArchivePath)
}

func validateDate(s string) error {
	if s == "" {
		return fmt.Errorf("missing (expected YYYY-MM-DD)")
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("%q is not a YYYY-MM-DD date", s)
	}
	return nil
}

func parseMode(name string) (models.ReportMode, error) {
	switch name {
	case "phone":
		return models.ModePhone, nil
	case "email-relay":
		return models.ModeEmailRelay, nil
	case "email-filtered":
		return models.ModeEmailFiltered, nil
	case "csv":
		return models.ModeCSV, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want phone, email-relay, email-filtered or csv)", name)
	}
}

// loadProperties reads the property list from a file when given one, and
// drives browser discovery against the dashboard otherwise.
func loadProperties(ctx context.Context, cfg *config.Config, logger *utils.Logger, propsFile string) ([]models.Property, error) {
	if propsFile == "" {
		return dashboard.New(cfg, logger).DiscoverProperties(ctx)
	}

	f, err := os.Open(propsFile)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", propsFile, err)
	}
	defer f.Close()

	var props []models.Property
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if prop, ok := dashboard.ParsePropertyLabel(scanner.Text()); ok {
			props = append(props, prop)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %q: %w", propsFile, err)
	}
	if len(props) == 0 {
		return nil, fmt.Errorf("%q contains no '<pms> - <name>' lines", propsFile)
	}
	return props, nil
}
