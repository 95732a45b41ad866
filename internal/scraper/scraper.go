package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// Scraper fetches a device's web pages and extracts a scrape record using the
// model-appropriate grammar.
type Scraper struct {
	fetcher inventory.PageFetcher
	logger  *zap.Logger
}

// New constructs a Scraper.
func New(fetcher inventory.PageFetcher, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{fetcher: fetcher, logger: logger}
}

// Scrape retrieves and parses every page the model's family requires. A page
// fetch failure aborts the device (its record would be incomplete in
// unpredictable ways); a field-level extraction miss does not.
func (s *Scraper) Scrape(ctx context.Context, ip, model string) (inventory.PhoneScrape, error) {
	family := FamilyFor(model)

	pages := make(map[Page]string)
	for page, url := range family.Endpoints(ip) {
		body, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return inventory.PhoneScrape{}, fmt.Errorf("unable to connect %s: %w", url, err)
		}
		text, err := flatten(body)
		if err != nil {
			return inventory.PhoneScrape{}, fmt.Errorf("flatten %s page: %w", page, err)
		}
		pages[page] = text
	}

	record, err := family.Parse(pages)
	if err != nil {
		return inventory.PhoneScrape{}, err
	}

	s.logger.Debug("scraped device",
		zap.String("ip", ip),
		zap.String("family", family.Name()),
		zap.String("devicename", record.DeviceName),
	)
	return record, nil
}
