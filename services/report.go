package services

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"datahub-exporter/config"
	"datahub-exporter/models"
	"datahub-exporter/storage"
	"datahub-exporter/utils"
)

// Totals are the aggregation counts returned to the orchestrator.
type Totals struct {
	Rows   int
	Emails int
}

// ReportBuilder reads persisted documents back, parses and classifies
// them, applies the run's report mode, and writes one artifact per
// property that has matching records.
type ReportBuilder struct {
	store    *storage.Store
	parser   *Parser
	channels *config.Channels
	logger   *utils.Logger
	sink     storage.RecordSink
}

// NewReportBuilder creates a ReportBuilder over the given document store.
func NewReportBuilder(store *storage.Store, parser *Parser, channels *config.Channels, logger *utils.Logger) *ReportBuilder {
	return &ReportBuilder{
		store:    store,
		parser:   parser,
		channels: channels,
		logger:   logger,
	}
}

// SetSink attaches an optional record sink (e.g. PostgreSQL) that receives
// every written record in addition to the report files. Sink failures are
// logged, never fatal.
func (b *ReportBuilder) SetSink(sink storage.RecordSink) {
	b.sink = sink
}

// Build produces the report artifacts for all properties and returns the
// artifact paths plus run totals. relayChannel selects whose guest-relay
// domain applies in the email-relay mode; it is ignored by other modes.
func (b *ReportBuilder) Build(properties []models.Property, mode models.ReportMode, relayChannel string) ([]string, Totals, error) {
	reportsDir, err := b.store.ReportsDir()
	if err != nil {
		return nil, Totals{}, err
	}

	relayDomain := ""
	if mode == models.ModeEmailRelay {
		ch := b.channels.ByName(relayChannel)
		if ch == nil || ch.RelayDomain == "" {
			return nil, Totals{}, fmt.Errorf("report: channel %q has no relay domain configured", relayChannel)
		}
		relayDomain = ch.RelayDomain
	}

	var paths []string
	var totals Totals

	for _, prop := range properties {
		records := b.parseProperty(prop.ID)
		kept := b.filter(records, mode, relayDomain)
		if len(kept) == 0 {
			continue
		}

		path, err := b.writeArtifact(reportsDir, prop, kept, mode)
		if err != nil {
			// One bad artifact must not abort the others.
			b.logger.Error("[report] property %d (%s): %v", prop.ID, prop.DisplayName, err)
			continue
		}
		paths = append(paths, path)

		totals.Rows += len(kept)
		for _, r := range kept {
			if r.Email != "" {
				totals.Emails++
			}
		}

		if b.sink != nil {
			if err := b.sink.Write(prop.ID, prop.DisplayName, kept); err != nil {
				b.logger.Warn("[report] sink write for property %d failed: %v", prop.ID, err)
			}
		}
	}

	return paths, totals, nil
}

// parseProperty reads every persisted document of one property in stable
// order and returns the parseable, non-empty records. Unparseable
// documents are skipped, not fatal.
func (b *ReportBuilder) parseProperty(propertyID int) []*models.BookingRecord {
	var records []*models.BookingRecord

	for _, docPath := range b.store.ListDocuments(propertyID) {
		body, err := b.store.ReadDocument(docPath)
		if err != nil {
			b.logger.Warn("[report] %s: %v", docPath, err)
			continue
		}
		record, ok := b.parser.Parse(body)
		if !ok {
			b.logger.Debug("[report] %s: skipped (unparseable or empty)", docPath)
			continue
		}
		records = append(records, record)
	}
	return records
}

func (b *ReportBuilder) filter(records []*models.BookingRecord, mode models.ReportMode, relayDomain string) []*models.BookingRecord {
	var kept []*models.BookingRecord
	for _, r := range records {
		switch mode {
		case models.ModePhone:
			if r.Channel == "" {
				continue
			}
		case models.ModeEmailRelay:
			if !emailDomainMatches(r.Email, relayDomain) {
				continue
			}
		case models.ModeEmailFiltered:
			if r.Email == "" || b.emailExcluded(r.Email) {
				continue
			}
		case models.ModeCSV:
			// structured export keeps everything parseable
		}
		kept = append(kept, r)
	}
	return kept
}

func (b *ReportBuilder) emailExcluded(email string) bool {
	for _, domain := range b.channels.ExclusionDomains {
		if emailDomainMatches(email, domain) {
			return true
		}
	}
	return false
}

// emailDomainMatches reports whether the address's domain equals the given
// domain or is a subdomain of it. Comparison is case-insensitive.
func emailDomainMatches(email, domain string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || domain == "" {
		return false
	}
	host := strings.ToLower(strings.TrimSpace(email[at+1:]))
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func (b *ReportBuilder) writeArtifact(reportsDir string, prop models.Property, records []*models.BookingRecord, mode models.ReportMode) (string, error) {
	name := utils.SafeFilename(prop.DisplayName)
	if name == "" {
		name = strconv.Itoa(prop.ID)
	}

	if mode == models.ModeCSV {
		path := filepath.Join(reportsDir, name+".csv")
		w, err := storage.NewCSVReportWriter(path)
		if err != nil {
			return "", err
		}
		for _, r := range records {
			if err := w.WriteRecord(prop.DisplayName, r); err != nil {
				_ = w.Close()
				return "", err
			}
		}
		return path, w.Close()
	}

	path := filepath.Join(reportsDir, name+".txt")
	withEmail := mode == models.ModeEmailRelay || mode == models.ModeEmailFiltered
	w, err := storage.NewTextReportWriter(path, withEmail)
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if err := w.WriteRecord(prop.DisplayName, r); err != nil {
			_ = w.Close()
			return "", err
		}
	}
	return path, w.Close()
}
