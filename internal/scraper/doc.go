// Package scraper extracts structured records from the web pages Cisco IP
// phones serve about themselves.
//
// Each model family owns its own grammar: the set of endpoint paths to fetch
// and the label patterns used to pull fields out of the flattened page text.
// Every field extraction is independently optional; only the identity-bearing
// field (the hostname, or the MAC address for the ATA family) is mandatory,
// and its absence fails the whole device.
package scraper
