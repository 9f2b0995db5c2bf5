package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"datahub-exporter/api"
	"datahub-exporter/config"
	"datahub-exporter/models"
	"datahub-exporter/services"
	"datahub-exporter/storage"
	"datahub-exporter/utils"
)

// Progress is called at a fixed cadence during acquisition with the number
// of properties completed, the total, and the documents saved so far.
type Progress func(done, total, saved int)

// Pipeline drives a full export run: token discovery and document fetch
// across all properties under nested concurrency bounds, queue drain, then
// classification and report aggregation.
type Pipeline struct {
	cfg      *config.Config
	channels *config.Channels
	logger   *utils.Logger
}

// New creates a Pipeline. The configuration is immutable for the run.
func New(cfg *config.Config, channels *config.Channels, logger *utils.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, channels: channels, logger: logger}
}

// Run executes the whole pipeline and returns the run summary. The working
// directory is torn down before returning, whatever the outcome; the only
// surviving outputs are the archive at cfg.ArchivePath and the summary.
func (p *Pipeline) Run(ctx context.Context, properties []models.Property, from, to string, mode models.ReportMode, relayChannel string, onProgress Progress) (*models.RunSummary, error) {
	properties = dedupeProperties(properties)
	summary := &models.RunSummary{PropertiesFound: len(properties)}

	runDir := filepath.Join(p.cfg.WorkDir, "run")
	if err := os.RemoveAll(runDir); err != nil {
		return summary, fmt.Errorf("prepare phase: clear run dir: %w", err)
	}
	store, err := storage.NewStore(runDir)
	if err != nil {
		return summary, fmt.Errorf("prepare phase: %w", err)
	}
	defer os.RemoveAll(runDir)

	client := api.NewClient(p.cfg, p.logger)
	resolver := services.NewResolver(client, p.channels.Codes(), p.cfg.DiscoveryRetry, p.cfg.DiscoveryConcurrency, p.logger)
	queue := storage.NewQueue(store, p.cfg.Writers, p.cfg.QueueCapacity, p.logger)

	// Inner bound: simultaneous document fetches across ALL properties.
	fetchSem := make(chan struct{}, p.cfg.FetchConcurrency)
	// Outer bound: properties resolved+fetched concurrently.
	pool := utils.NewWorkerPool(p.cfg.PropertyConcurrency, 0)

	var done, tokensFound int64

	for _, prop := range properties {
		prop := prop
		pool.Submit(func() {
			tokens := p.runProperty(ctx, prop, from, to, client, resolver, queue, fetchSem)
			atomic.AddInt64(&tokensFound, int64(tokens))

			n := atomic.AddInt64(&done, 1)
			if onProgress != nil && (int(n)%p.cfg.ProgressEvery == 0 || int(n) == len(properties)) {
				onProgress(int(n), len(properties), int(queue.Written()))
			}
		})
	}
	pool.Wait()

	// Barrier between acquisition and aggregation: every fetched document
	// must be on disk before the readback starts.
	queue.Close()
	queue.Wait()

	summary.PropertiesDone = int(atomic.LoadInt64(&done))
	summary.TokensFound = int(atomic.LoadInt64(&tokensFound))
	summary.DocumentsSaved = int(queue.Written())

	if len(properties) > 0 && summary.TokensFound == 0 {
		return summary, fmt.Errorf("acquisition phase: no booking tokens discovered for any of %d properties (backend unreachable or empty range)", len(properties))
	}

	parser := services.NewParser(p.channels.Channels)
	builder := services.NewReportBuilder(store, parser, p.channels, p.logger)

	if p.cfg.PostgresDSN != "" {
		sink, err := storage.NewPostgresWriter(p.cfg.PostgresDSN)
		if err != nil {
			p.logger.Warn("[pipeline] postgres sink unavailable: %v", err)
		} else {
			defer sink.Close()
			builder.SetSink(sink)
		}
	}

	paths, totals, err := builder.Build(properties, mode, relayChannel)
	if err != nil {
		return summary, fmt.Errorf("aggregation phase: %w", err)
	}
	summary.ReportsWritten = len(paths)
	summary.Rows = totals.Rows
	summary.Emails = totals.Emails

	reportsDir, err := store.ReportsDir()
	if err != nil {
		return summary, fmt.Errorf("archive phase: %w", err)
	}
	if err := storage.PackZip(reportsDir, p.cfg.ArchivePath); err != nil {
		return summary, fmt.Errorf("archive phase: %w", err)
	}

	return summary, nil
}

// runProperty resolves and fetches one property. Every failure mode is
// contained here: the property contributes zero and its siblings run on.
// Returns the number of tokens discovered.
func (p *Pipeline) runProperty(ctx context.Context, prop models.Property, from, to string, client *api.Client, resolver *services.Resolver, queue *storage.Queue, fetchSem chan struct{}) (tokens int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("[pipeline] property %d (%s) panicked: %v", prop.ID, prop.DisplayName, r)
			tokens = 0
		}
	}()

	if ctx.Err() != nil {
		return 0
	}

	tokenList := resolver.Resolve(ctx, prop.ID, from, to)
	if len(tokenList) == 0 {
		p.logger.Info("[pipeline] property %d (%s): no bookings in range", prop.ID, prop.DisplayName)
		return 0
	}

	var saved int64
	var wg sync.WaitGroup
	for _, token := range tokenList {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		fetchSem <- struct{}{}
		go func(token int) {
			defer wg.Done()
			defer func() { <-fetchSem }()

			if p.fetchDocument(ctx, client, queue, prop.ID, token) {
				atomic.AddInt64(&saved, 1)
			}
		}(token)
	}
	wg.Wait()

	p.logger.Info("[pipeline] property %d (%s): fetched %d/%d documents",
		prop.ID, prop.DisplayName, atomic.LoadInt64(&saved), len(tokenList))
	return len(tokenList)
}

// fetchDocument fetches one token's document and hands it to the
// persistence queue. Any failure (exhausted retries, empty payload) is
// "no document": a false return, never an escaping error.
func (p *Pipeline) fetchDocument(ctx context.Context, client *api.Client, queue *storage.Queue, propertyID, token int) bool {
	code := ""
	if len(p.channels.Channels) > 0 {
		code = p.channels.Channels[0].Code
	}

	xml, err := client.BookingXML(ctx, propertyID, token, code, p.cfg.FetchRetry)
	if err != nil {
		p.logger.Debug("[pipeline] fetch %d/%d: %v", propertyID, token, err)
		return false
	}
	if xml == "" {
		return false
	}

	queue.Put(storage.Item{PropertyID: propertyID, Token: token, Body: xml})
	return true
}

// dedupeProperties returns the working set: unique ids, ascending, first
// display name wins.
func dedupeProperties(in []models.Property) []models.Property {
	byID := make(map[int]models.Property, len(in))
	for _, prop := range in {
		if prop.ID <= 0 {
			continue
		}
		if _, ok := byID[prop.ID]; !ok {
			byID[prop.ID] = prop
		}
	}

	out := make([]models.Property, 0, len(byID))
	for _, prop := range byID {
		out = append(out, prop)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
