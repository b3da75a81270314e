package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/impact"
)

type Settings struct {
	SeverityThreshold         string
	Disabled                  map[string]bool
	SortwkPrimaryCylThreshold int
	// ADRDSSU enables ADRDSSU-UNSUPPORTED-OPTION; nil turns it off.
	ADRDSSU *impact.Metadata
}

var rsettings = Settings{
	SeverityThreshold:         "LOW",
	Disabled:                  map[string]bool{},
	SortwkPrimaryCylThreshold: 500,
}

func SetSettings(s Settings) {
	if s.SeverityThreshold == "" {
		s.SeverityThreshold = rsettings.SeverityThreshold
	}
	disabled := make(map[string]bool, len(s.Disabled))
	for id, off := range s.Disabled {
		disabled[strings.ToUpper(strings.TrimSpace(id))] = off
	}
	s.Disabled = disabled
	if s.SortwkPrimaryCylThreshold == 0 {
		s.SortwkPrimaryCylThreshold = rsettings.SortwkPrimaryCylThreshold
	}
	rsettings = s
}

// CurrentSettings returns the active settings.
func CurrentSettings() Settings { return rsettings }

func severityRank(sev string) int {
	switch strings.ToUpper(strings.TrimSpace(sev)) {
	case "HIGH":
		return 3
	case "MEDIUM":
		return 2
	default:
		return 1 // LOW or unknown → LOW
	}
}

func severityOK(sev string) bool {
	return severityRank(sev) >= severityRank(rsettings.SeverityThreshold)
}
