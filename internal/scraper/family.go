package scraper

import (
	"errors"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// ErrNoHostname reports that a device's pages contained no identity-bearing
// field. The scrape result must be discarded, never persisted.
var ErrNoHostname = errors.New("unable to locate hostname/devicename")

// Family is one model family's scrape grammar: which pages to fetch and how
// to turn their flattened text into a record.
type Family interface {
	// Name identifies the family in logs.
	Name() string
	// Endpoints returns the URLs to fetch for a device, keyed by page.
	Endpoints(ip string) map[Page]string
	// Parse extracts a record from the flattened page texts. It returns
	// ErrNoHostname when the identity field cannot be determined.
	Parse(pages map[Page]string) (inventory.PhoneScrape, error)
}

// familiesByModel routes exact model strings to their special-case grammar.
// Everything else uses the standard family.
var familiesByModel = map[string]Family{
	"7940":    legacyFamily{},
	"7960":    legacyFamily{},
	"ATA 186": ataFamily{},
	"ATA 188": ataFamily{},
}

// FamilyFor selects the parsing grammar for a model string.
func FamilyFor(model string) Family {
	if family, ok := familiesByModel[model]; ok {
		return family
	}
	return standardFamily{}
}
