package utils

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion accepts strict major.minor.patch versions only.
func ParseVersion(v string) (*semver.Version, error) {
	parsed, err := semver.StrictNewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", v, err)
	}
	if parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return nil, fmt.Errorf("invalid version %q: must be major.minor.patch", v)
	}
	return parsed, nil
}

// SortVersionsDesc orders version strings by numeric major/minor/patch
// comparison, newest first. Unparseable versions sink to the end in their
// original relative order.
func SortVersionsDesc(versions []string) []string {
	type entry struct {
		raw    string
		parsed *semver.Version
	}
	entries := make([]entry, 0, len(versions))
	for _, v := range versions {
		parsed, err := semver.StrictNewVersion(v)
		if err != nil {
			entries = append(entries, entry{raw: v})
			continue
		}
		entries = append(entries, entry{raw: v, parsed: parsed})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.parsed == nil || b.parsed == nil {
			return a.parsed != nil
		}
		return a.parsed.GreaterThan(b.parsed)
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.raw
	}
	return out
}
