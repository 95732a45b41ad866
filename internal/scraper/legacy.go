package scraper

import (
	"strings"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// legacyFamily covers the 7940/7960 generation, which predates the
// Serviceability CGI adapter and serves plain pages under fixed paths.
type legacyFamily struct{}

func (legacyFamily) Name() string { return "legacy-79xx" }

func (legacyFamily) Endpoints(ip string) map[Page]string {
	return map[Page]string{
		PageConfig:  "http://" + ip + "/NetworkConfiguration",
		PageDevice:  "http://" + ip + "/DeviceInformation",
		PageStatus:  "http://" + ip + "/DeviceLog?2",
		PageNetwork: "http://" + ip + "/PortInformation?1",
	}
}

func (legacyFamily) Parse(pages map[Page]string) (inventory.PhoneScrape, error) {
	record, err := parseCommon(pages)
	if err != nil {
		return inventory.PhoneScrape{}, err
	}
	record.Model = normalizeModelNumber(record.Model)
	record.DHCP = normalizeEnabledToken(record.DHCP)
	record.AltTFTP = normalizeEnabledToken(record.AltTFTP)
	applyStatusMessages(&record, pages[PageStatus])
	return record, nil
}

// normalizeEnabledToken maps the old firmware's enabled/disabled wording onto
// the Yes/No vocabulary newer models use.
func normalizeEnabledToken(value string) string {
	switch strings.ToLower(value) {
	case "enabled":
		return "Yes"
	case "disabled":
		return "No"
	default:
		return value
	}
}
