package dice

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadNotation indicates a string that is not NdF[+/-M].
var ErrBadNotation = errors.New("dice notation must look like 2d6+3")

var notationRE = regexp.MustCompile(`^(\d+)?d(\d+)([+-]\d+)?$`)

// Notation is a parsed "NdF+M" expression.
type Notation struct {
	Count    int
	Sides    int
	Modifier int
}

// ParseNotation accepts forms like "d20", "2d6+3" and "1d8 - 1".
// A missing count means one die.
func ParseNotation(raw string) (Notation, error) {
	clean := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	m := notationRE.FindStringSubmatch(clean)
	if m == nil {
		return Notation{}, ErrBadNotation
	}
	n := Notation{Count: 1}
	var err error
	if m[1] != "" {
		if n.Count, err = strconv.Atoi(m[1]); err != nil {
			return Notation{}, ErrBadNotation
		}
	}
	if n.Sides, err = strconv.Atoi(m[2]); err != nil {
		return Notation{}, ErrBadNotation
	}
	if m[3] != "" {
		if n.Modifier, err = strconv.Atoi(m[3]); err != nil {
			return Notation{}, ErrBadNotation
		}
	}
	return n, nil
}

// Apply overwrites the dice of s with n and adds n's modifier to s's.
func (n Notation) Apply(s Spec) Spec {
	s.DieFaces = n.Sides
	s.Quantity = n.Count
	s.Modifier += n.Modifier
	return s
}
