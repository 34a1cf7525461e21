// internal/grants/agerange.go
package grants

import (
	"regexp"
	"strconv"
)

var ageRangePattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)

// AgeRange bounds are taken as written; Min is not guaranteed to be <= Max.
type AgeRange struct {
	Min int
	Max int
}

// Contains reports whether age lies in [Min, Max].
func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// ParseAgeRange extracts the first "<int>-<int>" pair from free text such as
// "18-39" or "ages 18 - 29 only". ok is false when no pair is present.
func ParseAgeRange(text string) (r AgeRange, ok bool) {
	m := ageRangePattern.FindStringSubmatch(text)
	if m == nil {
		return AgeRange{}, false
	}
	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return AgeRange{}, false
	}
	hi, err := strconv.Atoi(m[2])
	if err != nil {
		return AgeRange{}, false
	}
	return AgeRange{Min: lo, Max: hi}, true
}
