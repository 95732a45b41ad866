package scraper

import (
	"regexp"
	"strings"
)

// Page names one of the web resources a phone exposes. Families map pages to
// model-specific URLs.
type Page string

// Pages fetched per device. Not every family uses all four.
const (
	PageConfig  Page = "config"
	PageDevice  Page = "device"
	PageStatus  Page = "status"
	PageNetwork Page = "network"
)

// extract runs patterns against the flattened page text in order and returns
// the first match's value capture. The boolean reports whether any pattern
// matched; a miss is not an error, the caller simply leaves the field unset.
func extract(text string, patterns ...*regexp.Regexp) (string, bool) {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[len(m)-1]), true
		}
	}
	return "", false
}

// setIfMatched assigns the extracted value only on a pattern hit, preserving
// whatever the field already held on a miss.
func setIfMatched(dst *string, text string, patterns ...*regexp.Regexp) {
	if value, ok := extract(text, patterns...); ok {
		*dst = value
	}
}

// labeled compiles a grammar rule of the form (variant1|variant2|...)(value)
// where the value capture stops at the next "_" separator or space. Label
// variants cover vendor wording differences between firmware generations,
// including the "Label_\n_\n_" shape produced by table-heavy pages.
func labeled(variants ...string) *regexp.Regexp {
	return regexp.MustCompile("(" + strings.Join(variants, "|") + `)([^(_| )]*)`)
}

// labeledLoose is labeled with a value capture that only stops at the next
// "_" separator, for values that may contain spaces (e.g. switch port names).
func labeledLoose(variants ...string) *regexp.Regexp {
	return regexp.MustCompile("(" + strings.Join(variants, "|") + `)([^_]*)`)
}
