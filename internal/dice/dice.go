// Package dice resolves declarative roll specifications into results.
//
// Resolve is a pure function: every die face is drawn from the injected
// randomness source, so a fixed source always yields the same Result.
// Invalid numeric input is clamped rather than rejected.
package dice

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how a d20 roll keeps its dice.
type Mode string

const (
	ModeNormal       Mode = "normal"
	ModeAdvantage    Mode = "advantage"
	ModeDisadvantage Mode = "disadvantage"
)

const (
	// AdvantageFaces is the only die type advantage and disadvantage apply to.
	AdvantageFaces = 20
	DefaultFaces   = 20
	ExtraFaces     = 6
	MaxFaces       = 1000
	// MaxQuantity caps dice per clause. Larger requests are rolled at the cap
	// and the Result reports the dice actually rolled.
	MaxQuantity    = 100
)

// ParseMode maps client labels onto a Mode. Unknown labels are normal.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeAdvantage:
		return ModeAdvantage
	case ModeDisadvantage:
		return ModeDisadvantage
	default:
		return ModeNormal
	}
}

// Extra is an additional damage clause, e.g. sneak attack dice.
type Extra struct {
	DieFaces int `json:"dieFaces"`
	Quantity int `json:"quantity"`
}

// Spec describes one roll request.
type Spec struct {
	DieFaces int
	Quantity int
	Modifier int
	Mode     Mode
	Critical bool
	Extra    *Extra
}

// Result captures every die drawn for a Spec and the totals derived from them.
type Result struct {
	DieFaces      int    `json:"dieFaces"`
	Quantity      int    `json:"quantity"`
	Modifier      int    `json:"modifier"`
	Mode          Mode   `json:"mode"`
	Critical      bool   `json:"critical"`
	Rolls         []int  `json:"individualRolls"`
	Kept          []int  `json:"kept"`
	Dropped       []int  `json:"dropped,omitempty"`
	ExtraDieFaces int    `json:"extraDieFaces,omitempty"`
	ExtraRolls    []int  `json:"extraRolls,omitempty"`
	RawResult     int    `json:"rawResult"`
	FinalResult   int    `json:"finalResult"`
	Natural20     bool   `json:"natural20,omitempty"`
	Natural1      bool   `json:"natural1,omitempty"`
	Description   string `json:"description"`
}

// Normalize clamps a Spec into the range Resolve accepts.
func (s Spec) Normalize() Spec {
	s.DieFaces = clampFaces(s.DieFaces, DefaultFaces)
	s.Quantity = clampQuantity(s.Quantity)
	s.Mode = ParseMode(string(s.Mode))
	if s.Extra != nil {
		if s.Extra.Quantity <= 0 {
			s.Extra = nil
		} else {
			s.Extra = &Extra{
				DieFaces: clampFaces(s.Extra.DieFaces, ExtraFaces),
				Quantity: clampQuantity(s.Extra.Quantity),
			}
		}
	}
	return s
}

// keepsOne reports whether the spec takes the two-d20 keep-one path.
func (s Spec) keepsOne() bool {
	return s.DieFaces == AdvantageFaces && (s.Mode == ModeAdvantage || s.Mode == ModeDisadvantage)
}

// Resolve rolls spec using rng, which must return values in [0,1).
//
// On d20 with advantage or disadvantage exactly two dice are rolled and the
// higher (lower) is kept; the other is reported in Dropped. Any other die
// type sums every requested die and reports the mode as normal. A critical
// spec doubles dice counts, base and extra independently, but never the
// modifier. FinalResult is the sum of Kept and ExtraRolls plus Modifier.
func Resolve(spec Spec, rng func() float64) Result {
	s := spec.Normalize()
	res := Result{
		DieFaces: s.DieFaces,
		Modifier: s.Modifier,
		Mode:     ModeNormal,
		Critical: s.Critical,
	}

	raw := 0
	if s.keepsOne() {
		a, b := roll(rng, AdvantageFaces), roll(rng, AdvantageFaces)
		kept, dropped := max(a, b), min(a, b)
		if s.Mode == ModeDisadvantage {
			kept, dropped = dropped, kept
		}
		res.Mode = s.Mode
		res.Quantity = 2
		res.Rolls = []int{a, b}
		res.Kept = []int{kept}
		res.Dropped = []int{dropped}
		raw = kept
	} else {
		count := s.Quantity
		if s.Critical {
			count *= 2
		}
		res.Quantity = count
		res.Rolls = rollN(rng, s.DieFaces, count)
		res.Kept = append([]int(nil), res.Rolls...)
		raw = sum(res.Rolls)
	}

	if s.Extra != nil {
		count := s.Extra.Quantity
		if s.Critical {
			count *= 2
		}
		res.ExtraDieFaces = s.Extra.DieFaces
		res.ExtraRolls = rollN(rng, s.Extra.DieFaces, count)
		raw += sum(res.ExtraRolls)
	}

	res.RawResult = raw
	res.FinalResult = raw + s.Modifier
	if res.DieFaces == AdvantageFaces && len(res.Kept) == 1 && len(res.ExtraRolls) == 0 {
		res.Natural20 = res.Kept[0] == AdvantageFaces
		res.Natural1 = res.Kept[0] == 1
	}
	res.Description = describe(res)
	return res
}

func roll(rng func() float64, faces int) int {
	x := rng()
	switch {
	case math.IsNaN(x) || x < 0:
		x = 0
	case x >= 1:
		x = math.Nextafter(1, 0)
	}
	return int(x*float64(faces)) + 1
}

func rollN(rng func() float64, faces, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = roll(rng, faces)
	}
	return out
}

func sum(vs []int) int {
	total := 0
	for _, v := range vs {
		total += v
	}
	return total
}

func clampFaces(faces, fallback int) int {
	switch {
	case faces < 2:
		return fallback
	case faces > MaxFaces:
		return MaxFaces
	}
	return faces
}

func clampQuantity(q int) int {
	switch {
	case q < 1:
		return 1
	case q > MaxQuantity:
		return MaxQuantity
	}
	return q
}

func describe(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", r.Quantity, r.DieFaces)
	if r.Mode != ModeNormal {
		fmt.Fprintf(&b, " (%s)", r.Mode)
	}
	if len(r.ExtraRolls) > 0 {
		fmt.Fprintf(&b, " + %dd%d", len(r.ExtraRolls), r.ExtraDieFaces)
	}
	switch {
	case r.Modifier > 0:
		fmt.Fprintf(&b, " + %d", r.Modifier)
	case r.Modifier < 0:
		fmt.Fprintf(&b, " - %d", -r.Modifier)
	}
	if r.Critical {
		b.WriteString(" (crit)")
	}
	return b.String()
}
