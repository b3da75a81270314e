// Package impact classifies ADRDSSU control statements against a support
// matrix and summarizes which options a migration can and cannot carry.
package impact

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Status is how the target platform treats an option.
type Status string

const (
	Supported       Status = "Supported"
	NotSupported    Status = "Not supported"
	AcceptedIgnored Status = "Accepted but ignored"
	Unknown         Status = "Unknown"
)

// Statuses lists every status, most severe first.
var Statuses = []Status{NotSupported, Unknown, AcceptedIgnored, Supported}

func (s Status) rank() int {
	switch s {
	case NotSupported:
		return 3
	case Unknown:
		return 2
	case AcceptedIgnored:
		return 1
	}
	return 0
}

type metadataDoc struct {
	ADRDSSU struct {
		Statements map[string]struct {
			Supported    []string `yaml:"Supported"`
			NotSupported []string `yaml:"Not supported"`
			Ignored      []string `yaml:"Accepted but ignored"`
		} `yaml:"Statements"`
	} `yaml:"ADRDSSU"`
}

// Metadata maps statement type -> option -> status. Keys are upper-cased with
// single spaces.
type Metadata struct {
	statements map[string]map[string]Status
}

// LoadMetadata reads an ADRDSSU support matrix.
func LoadMetadata(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adrdssu metadata: %w", err)
	}
	m, err := ParseMetadata(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseMetadata parses the YAML form:
//
//	ADRDSSU:
//	  Statements:
//	    DUMP:
//	      Supported: [OUTDDNAME, COMPRESS]
//	      Not supported: [CONCURRENT]
//	      Accepted but ignored: [OPTIMIZE]
//
// An option listed twice for one statement keeps its first status, in the
// order Supported, Not supported, Accepted but ignored.
func ParseMetadata(b []byte) (*Metadata, error) {
	var doc metadataDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.ADRDSSU.Statements) == 0 {
		return nil, fmt.Errorf("no ADRDSSU.Statements defined")
	}
	m := &Metadata{statements: map[string]map[string]Status{}}
	for stmt, lists := range doc.ADRDSSU.Statements {
		opts := map[string]Status{}
		put := func(names []string, st Status) {
			for _, n := range names {
				n = normalize(n)
				if _, ok := opts[n]; !ok && n != "" {
					opts[n] = st
				}
			}
		}
		put(lists.Supported, Supported)
		put(lists.NotSupported, NotSupported)
		put(lists.Ignored, AcceptedIgnored)
		m.statements[normalize(stmt)] = opts
	}
	return m, nil
}

// Statements returns the known statement types, sorted.
func (m *Metadata) Statements() []string {
	out := make([]string, 0, len(m.statements))
	for s := range m.statements {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Status returns the listed status of option under stmt, and false when the
// statement or the option is not listed.
func (m *Metadata) Status(stmt, option string) (Status, bool) {
	opts, ok := m.statements[normalize(stmt)]
	if !ok {
		return Unknown, false
	}
	st, ok := opts[normalize(option)]
	if !ok {
		return Unknown, false
	}
	return st, true
}

func (m *Metadata) knows(stmt string) bool {
	_, ok := m.statements[normalize(stmt)]
	return ok
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
