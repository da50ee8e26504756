package utils

import "strings"

var plateSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "\t", "")

// NormalizePlate reduces a plate to its comparable form: separators
// removed, upper case. Used for lookups only; stored plates are kept as
// recognized.
func NormalizePlate(raw string) string {
	return strings.ToUpper(plateSeparators.Replace(strings.TrimSpace(raw)))
}
