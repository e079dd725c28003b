package catalog

import (
	"strconv"
	"strings"
)

// apiLevels maps platform release codenames to API levels.
var apiLevels = map[string]int{
	"G":     9,
	"I":     14,
	"J":     16,
	"J-MR1": 17,
	"J-MR2": 18,
	"K":     19,
	"L":     21,
	"L-MR1": 22,
	"M":     23,
	"N":     24,
	"N-MR1": 25,
	"O":     26,
	"O-MR1": 27,
	"P":     28,
	"Q":     29,
	"R":     30,
	"S":     31,
	"S-V2":  32,
	"T":     33,
	"U":     34,
	"V":     35,
	"B":     36,
}

// APILevel converts a codename ("L", "O-MR1") or a decimal string to an API
// level.
func APILevel(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}
	n, ok := apiLevels[strings.ToUpper(s)]
	return n, ok
}
