// Package options provides shared utilities for option validation across packages.
package options

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateSingleInputSource ensures exactly one input source is specified.
// sources is a variadic list of booleans indicating whether each source is set.
// noSourceMsg is the error message when no source is specified.
// multiSourceMsg is the error message when multiple sources are specified.
// Returns an error if zero or more than one input source is specified.
func ValidateSingleInputSource(noSourceMsg, multiSourceMsg string, sources ...bool) error {
	sourceCount := 0
	for _, hasSource := range sources {
		if hasSource {
			sourceCount++
		}
	}

	if sourceCount == 0 {
		return fmt.Errorf("%s", noSourceMsg)
	}
	if sourceCount > 1 {
		return fmt.Errorf("%s", multiSourceMsg)
	}

	return nil
}

// ExactlyOne is ValidateSingleInputSource for named sources: the error for
// multiple sources lists which ones were set, in sorted order.
// Example: ExactlyOne("credential", map[string]bool{"api_key": true, "bearer": true})
// returns "multiple credential variants set: api_key, bearer".
func ExactlyOne(what string, sources map[string]bool) error {
	var set []string
	for name, ok := range sources {
		if ok {
			set = append(set, name)
		}
	}
	sort.Strings(set)
	return ValidateSingleInputSource(
		fmt.Sprintf("no %s variant set", what),
		fmt.Sprintf("multiple %s variants set: %s", what, strings.Join(set, ", ")),
		len(set) > 0, len(set) > 1,
	)
}
