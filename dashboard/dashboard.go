package dashboard

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"datahub-exporter/config"
	"datahub-exporter/models"
	"datahub-exporter/utils"
)

const menuItem = "Bookings from Channels to (FN & FX)"

// Discoverer logs into the vendor dashboard with a headless browser and
// reads the managed-property list out of the booking page's multiselect.
// The pipeline itself never depends on this package; it only consumes the
// resulting property list.
type Discoverer struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Discoverer.
func New(cfg *config.Config, logger *utils.Logger) *Discoverer {
	return &Discoverer{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// DiscoverProperties performs login and navigation, then returns the
// parsed property list. Failures here are run-fatal: without a property
// list there is nothing to export.
func (d *Discoverer) DiscoverProperties(ctx context.Context) ([]models.Property, error) {
	if d.cfg.DashboardLogin == "" || d.cfg.DashboardPassword == "" {
		return nil, fmt.Errorf("dashboard: login credentials are not configured")
	}

	chromeBin := findChromeBinary()
	d.logger.Info("[dashboard] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()

	var labels []string
	err := d.retry.Do("dashboard-discovery", func() error {
		tabCtx, cancel := chromedp.NewContext(silentCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 3*time.Minute)
		defer cancelTimeout()

		if err := d.login(tabCtx); err != nil {
			return err
		}
		if err := d.openBookingsPage(tabCtx); err != nil {
			return err
		}

		var err error
		labels, err = d.readPropertyDropdown(tabCtx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var props []models.Property
	for _, label := range labels {
		if prop, ok := ParsePropertyLabel(label); ok {
			props = append(props, prop)
		}
	}

	d.logger.Info("[dashboard] Discovered %d properties (%d dropdown entries)", len(props), len(labels))
	if len(props) == 0 {
		return nil, fmt.Errorf("dashboard: property dropdown yielded no parseable entries")
	}
	return props, nil
}

func (d *Discoverer) login(ctx context.Context) error {
	err := chromedp.Run(ctx,
		chromedp.Navigate(d.cfg.DashboardURL),
		chromedp.Sleep(3*time.Second),
		chromedp.WaitVisible(`input[type="email"], input[placeholder*="email" i]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="email"], input[placeholder*="email" i]`, d.cfg.DashboardLogin, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="password"]`, d.cfg.DashboardPassword, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		// The post-login shell renders a Material side nav; its presence
		// is the only reliable login signal.
		chromedp.WaitVisible(`mat-sidenav-container, mat-drawer, button.mat-icon-button`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("dashboard login: %w", err)
	}
	return nil
}

func (d *Discoverer) openBookingsPage(ctx context.Context) error {
	var clicked bool
	err := chromedp.Run(ctx,
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(`
			(function() {
				var item = '`+menuItem+`';
				var els = document.querySelectorAll('a, button, div');
				// Open the section first, then the sub-item.
				for (var pass = 0; pass < 2; pass++) {
					var needle = pass === 0 ? 'Bookings' : item;
					for (var i = 0; i < els.length; i++) {
						var text = (els[i].textContent || '').trim();
						if (pass === 0 ? text === needle : text.indexOf(needle) !== -1) {
							els[i].scrollIntoView();
							els[i].click();
							break;
						}
					}
				}
				return true;
			})()
		`, &clicked),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("dashboard navigation: %w", err)
	}
	if !clicked {
		return fmt.Errorf("dashboard navigation: menu item %q not found", menuItem)
	}
	return nil
}

func (d *Discoverer) readPropertyDropdown(ctx context.Context) ([]string, error) {
	var labels []string
	err := chromedp.Run(ctx,
		chromedp.Click(`ngc-multiselect-dropdown .dropdown-btn, .multiselect-dropdown .dropdown-btn`, chromedp.ByQuery),
		chromedp.WaitVisible(`.dropdown-list:not([hidden])`, chromedp.ByQuery),
		chromedp.Evaluate(`
			(function() {
				var panels = document.querySelectorAll('.dropdown-list:not([hidden])');
				var panel = panels[panels.length - 1];
				if (!panel) return [];
				return Array.from(panel.querySelectorAll('li'))
					.map(function(li) { return (li.textContent || '').trim(); })
					.filter(Boolean);
			})()
		`, &labels),
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard property dropdown: %w", err)
	}
	return labels, nil
}

// ParsePropertyLabel parses a dropdown entry of the form
// "<pmsCode> - <display name>" into a Property. Entries without a numeric
// head are not properties (e.g. the "Select All" row).
func ParsePropertyLabel(label string) (models.Property, bool) {
	head, rest, found := strings.Cut(label, "-")
	if !found {
		return models.Property{}, false
	}

	id, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || id <= 0 {
		return models.Property{}, false
	}

	return models.Property{ID: id, DisplayName: strings.TrimSpace(rest)}, true
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
