package scraper

import (
	"regexp"
	"strings"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// ataFamily covers the ATA 186/188 analog adapters. Their pages expose no
// hostname at all, so the identity is synthesized from the MAC address the
// device prints on its information page.
type ataFamily struct{}

var (
	ataMACRe     = regexp.MustCompile(`(MAC Address_\n_\n_|MAC address_|MAC Address_)([0-9A-Fa-f]{12})`)
	ataBareMACRe = regexp.MustCompile(`\b([0-9A-Fa-f]{12})\b`)
)

func (ataFamily) Name() string { return "ata" }

// Endpoints for the ATA family: two pages, no network statistics.
func (ataFamily) Endpoints(ip string) map[Page]string {
	return map[Page]string{
		PageDevice: "http://" + ip + "/DeviceInformation",
		PageStatus: "http://" + ip + "/DeviceLog",
	}
}

func (ataFamily) Parse(pages map[Page]string) (inventory.PhoneScrape, error) {
	deviceText := pages[PageDevice]

	mac, ok := extract(deviceText, ataMACRe)
	if !ok {
		mac, ok = extract(deviceText, ataBareMACRe)
	}
	if !ok || mac == "" {
		return inventory.PhoneScrape{}, ErrNoHostname
	}

	// CUCM registers these adapters as ATA<MAC>, so the synthetic hostname
	// lines up with the device record identity.
	record := inventory.PhoneScrape{DeviceName: "ATA" + strings.ToUpper(mac)}

	setIfMatched(&record.SerialNumber, deviceText, serialRe)
	setIfMatched(&record.Firmware, deviceText, versionRe)
	setIfMatched(&record.DN, deviceText, phoneDNRe)
	setIfMatched(&record.Model, deviceText, modelNoRe)
	setIfMatched(&record.IPAddress, deviceText, ipAddressRe)

	return record, nil
}
