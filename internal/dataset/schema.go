package dataset

import (
	"fmt"
	"strings"
)

// Version identifies a revision of the simulation output format
type Version string

const (
	VersionAuto Version = "auto"
	VersionV1   Version = "v1"
	VersionV2   Version = "v2"
	VersionV3   Version = "v3"
)

// Canonical column names
const (
	ColM                  = "m"
	ColN                  = "n"
	ColDeletions          = "K"
	ColFreeFraction       = "freeFraction"
	ColSuccessfulSearch   = "successful-search"
	ColUnsuccessfulSearch = "unsuccessful-search"
	ColInsertion          = "insertion"
	ColTimeavgInsertion   = "timeavg-insertion"
	ColTimeavgLoad        = "timeavg-load"
	ColWeight             = "k"
	ColElapsed            = "elapsed-sec"
	ColExpectedLoad       = "E[Load]"

	ColTombstones       = "tombstones"
	ColSqrtUnsuccessful = "sqrt_unsuccessful"
)

// aliases maps legacy column names to their canonical form
var aliases = map[string]string{
	"unsuccessfull": ColUnsuccessfulSearch,
	"successfull":   ColSuccessfulSearch,
}

// Schema declares the columns a file of a given version must carry
type Schema struct {
	Version  Version
	Required []string
}

var schemas = map[Version]Schema{
	VersionAuto: {Version: VersionAuto},
	VersionV1: {
		Version:  VersionV1,
		Required: []string{ColN, ColDeletions, ColFreeFraction, ColSuccessfulSearch, ColUnsuccessfulSearch},
	},
	VersionV2: {
		Version:  VersionV2,
		Required: []string{ColN, ColDeletions, ColFreeFraction, ColSuccessfulSearch, ColUnsuccessfulSearch},
	},
	VersionV3: {
		Version: VersionV3,
		Required: []string{ColN, ColDeletions, ColFreeFraction, ColSuccessfulSearch, ColUnsuccessfulSearch,
			ColInsertion, ColTimeavgInsertion, ColTimeavgLoad, ColWeight},
	},
}

// LookupSchema returns the schema registered for name
func LookupSchema(name string) (Schema, error) {
	if name == "" {
		return schemas[VersionAuto], nil
	}
	s, ok := schemas[Version(name)]
	if !ok {
		return Schema{}, fmt.Errorf("unknown schema version %q", name)
	}
	return s, nil
}

// Detect infers the version of a raw header
func Detect(header []string) Version {
	has := make(map[string]bool, len(header))
	for _, h := range header {
		has[h] = true
	}
	switch {
	case has["unsuccessfull"] || has["successfull"]:
		return VersionV1
	case has[ColWeight] && has[ColTimeavgLoad]:
		return VersionV3
	default:
		return VersionV2
	}
}

// Canonicalize strips comment markers from header tokens and maps legacy
// names to their canonical form. A lone "#" token is dropped.
func Canonicalize(header []string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		h = strings.TrimLeft(h, "#")
		if h == "" {
			continue
		}
		if c, ok := aliases[h]; ok {
			h = c
		}
		out = append(out, h)
	}
	return out
}

// Check reports the first required column absent from columns
func (s Schema) Check(columns []string) error {
	has := make(map[string]bool, len(columns))
	for _, c := range columns {
		has[c] = true
	}
	for _, req := range s.Required {
		if !has[req] {
			return fmt.Errorf("%w %q required by schema %s", ErrMissingColumn, req, s.Version)
		}
	}
	return nil
}

// Resolve returns the concrete version of a file given its raw header
func (s Schema) Resolve(rawHeader []string) Version {
	if s.Version == VersionAuto {
		return Detect(stripComments(rawHeader))
	}
	return s.Version
}

func stripComments(header []string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		if h = strings.TrimLeft(h, "#"); h != "" {
			out = append(out, h)
		}
	}
	return out
}
