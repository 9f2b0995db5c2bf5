package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"datahub-exporter/api"
	"datahub-exporter/config"
	"datahub-exporter/utils"
)

// Resolver discovers the booking tokens visible to a property over a date
// range by probing every configured channel code and unioning the results.
// All Resolve calls in a run share one small semaphore: the booking-log
// endpoint is slower and less reliable than document fetch, so its
// concurrency is bounded separately and tighter.
type Resolver struct {
	client  *api.Client
	codes   []string
	profile config.Retry
	sem     chan struct{}
	logger  *utils.Logger
}

// NewResolver creates a Resolver probing the given channel codes.
func NewResolver(client *api.Client, codes []string, profile config.Retry, concurrency int, logger *utils.Logger) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{
		client:  client,
		codes:   codes,
		profile: profile,
		sem:     make(chan struct{}, concurrency),
		logger:  logger,
	}
}

// Resolve returns the deduplicated token set for one property. An empty
// result is a valid outcome: the property has no bookings in range, or
// every channel probe failed; either way the property is skipped for
// fetching, and only the logs tell the two apart.
func (r *Resolver) Resolve(ctx context.Context, propertyID int, from, to string) []int {
	return r.ResolveChannels(ctx, propertyID, from, to, r.codes)
}

// ResolveChannels is Resolve with an explicit channel-code list; the
// single-element form serves properties pre-bound to one resolved code.
func (r *Resolver) ResolveChannels(ctx context.Context, propertyID int, from, to string, codes []string) []int {
	tokens := utils.NewTokenSet()
	var wg sync.WaitGroup

	for _, code := range codes {
		wg.Add(1)
		r.sem <- struct{}{}

		go func(code string) {
			defer wg.Done()
			defer func() { <-r.sem }()

			rows, err := r.client.BookingLog(ctx, propertyID, code, from, to, r.profile)
			if err != nil {
				// One channel failing must not fail the property.
				r.logger.Warn("[resolver] property %d channel %s: %v", propertyID, code, err)
				return
			}

			for _, row := range rows {
				if token, ok := coerceToken(row.EchoToken); ok {
					tokens.Add(token)
				}
			}
		}(code)
	}

	wg.Wait()
	return tokens.Tokens()
}

// coerceToken turns the backend's echoToken (a number, or a float-like
// string such as "123456.0") into an integer identifier. Missing or
// non-numeric values are dropped.
func coerceToken(raw json.RawMessage) (int, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}

	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(unquoted)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	token := int(f)
	if token <= 0 {
		return 0, false
	}
	return token, true
}
