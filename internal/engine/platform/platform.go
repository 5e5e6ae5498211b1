package platform

import (
	"strings"
	"unicode"
)

type ProductionStatus string

const (
	StatusCurrent      ProductionStatus = "current"
	StatusUpdatable    ProductionStatus = "updatable"
	StatusDiscontinued ProductionStatus = "discontinued"
	StatusUnknown      ProductionStatus = "unknown"
)

// Platform describes one Roku hardware platform as printed in the
// "Hardware Platform" column of a crash log.
type Platform struct {
	ProductName      string           `json:"productName"`
	CodeName         string           `json:"codeName"`
	Model            string           `json:"model"`
	ProductionStatus ProductionStatus `json:"productionStatus"`
	LatestOSVersion  string           `json:"latestOsVersion,omitempty"`
}

// Unknown is returned when no table entry matches a code name.
var Unknown = Platform{
	ProductName:      "Unknown",
	CodeName:         "Unknown",
	Model:            "Unknown",
	ProductionStatus: StatusUnknown,
}

// Table is an ordered platform list; earlier entries win ties.
type Table []Platform

// Identify looks a code name up with progressively looser rules: exact
// (case-insensitive) code name, then a code name containing the input, then
// each ';', ',', '_' or space separated part of the input except "4k".
// Anything else is Unknown.
func (t Table) Identify(codeName string) Platform {
	query := strings.ToLower(strings.TrimSpace(codeName))
	if query == "" {
		return Unknown
	}

	for _, p := range t {
		if strings.ToLower(p.CodeName) == query {
			return p
		}
	}
	if p, ok := t.matchSubstring(query); ok {
		return p
	}

	parts := strings.FieldsFunc(query, func(r rune) bool {
		return r == ';' || r == ',' || r == '_' || unicode.IsSpace(r)
	})
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "4k" {
			continue
		}
		if p, ok := t.matchSubstring(part); ok {
			return p
		}
	}
	return Unknown
}

func (t Table) matchSubstring(query string) (Platform, bool) {
	for _, p := range t {
		code := strings.ToLower(p.CodeName)
		if strings.Contains(code, query) {
			return p, true
		}
	}
	return Platform{}, false
}

// Identify looks codeName up in the built-in table.
func Identify(codeName string) Platform {
	return Default.Identify(codeName)
}
