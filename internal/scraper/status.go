package scraper

import (
	"regexp"
	"strings"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// statusEntryLimit caps how many trailing status-page entries are kept.
const statusEntryLimit = 10

var (
	// 7941/7961/7942/7962 firmware prints "10:42:03p Some message".
	shortClockStatusRe = regexp.MustCompile(`(\d{1,2}:..:..[ap]) ([^(_)]*)`)
	// Everything else prints "10:42:03am 08/29/26" with the message on the
	// following line.
	datedStatusRe = regexp.MustCompile(`(..:..:...m ../../...)(\n)([^(_)]*)`)
)

// shortClockModels use the time-only status grammar.
var shortClockModels = map[string]bool{
	"7941": true,
	"7961": true,
	"7942": true,
	"7962": true,
}

// applyStatusMessages parses the device's status/error log page, keeps the
// last N entries, and derives the ITL field from any entry mentioning the
// trust list. Models report their log in one of two timestamp grammars, so
// the parsed model number picks the variant.
func applyStatusMessages(record *inventory.PhoneScrape, statusText string) {
	if record.Model == "" {
		return
	}

	type entry struct {
		timestamp string
		message   string
	}
	var parsed []entry

	if shortClockModels[record.Model] {
		for _, m := range shortClockStatusRe.FindAllStringSubmatch(statusText, -1) {
			parsed = append(parsed, entry{timestamp: m[1], message: m[2]})
		}
	} else {
		for _, m := range datedStatusRe.FindAllStringSubmatch(statusText, -1) {
			parsed = append(parsed, entry{timestamp: m[1], message: m[3]})
		}
	}

	// Only the trailing entries count, both for the kept log and for the
	// ITL derivation.
	if len(parsed) > statusEntryLimit {
		parsed = parsed[len(parsed)-statusEntryLimit:]
	}

	var entries []string
	var itl string
	for _, e := range parsed {
		entries = append(entries, e.timestamp+" "+e.message)
		if isTrustListMessage(e.message) {
			itl = strings.TrimSpace(e.message)
		}
	}
	record.StatusMessages = entries
	record.ITL = itl
}

// isTrustListMessage flags status entries about the identity trust list.
func isTrustListMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "trust") || strings.Contains(lower, "itl")
}
