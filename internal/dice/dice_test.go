package dice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// forced returns a source that yields the given faces of an f-sided die in order.
func forced(t *testing.T, f int, faces ...int) func() float64 {
	t.Helper()
	i := 0
	return func() float64 {
		require.Less(t, i, len(faces), "source exhausted")
		v := (float64(faces[i]) - 0.5) / float64(f)
		i++
		return v
	}
}

func counting(src func() float64) (func() float64, *int) {
	n := 0
	return func() float64 {
		n++
		return src()
	}, &n
}

func TestResolveNormalStaysInRange(t *testing.T) {
	src := NewSource(42)
	for faces := 2; faces <= 20; faces++ {
		for q := 1; q <= 6; q++ {
			for _, m := range []int{-3, 0, 5} {
				res := Resolve(Spec{DieFaces: faces, Quantity: q, Modifier: m, Mode: ModeNormal}, src)
				assert.GreaterOrEqual(t, res.FinalResult, q+m)
				assert.LessOrEqual(t, res.FinalResult, q*faces+m)
				assert.Len(t, res.Rolls, q)
				assert.Equal(t, res.RawResult+m, res.FinalResult)
			}
		}
	}
}

func TestResolveAdvantageKeepsHighest(t *testing.T) {
	res := Resolve(Spec{DieFaces: 20, Quantity: 1, Modifier: 3, Mode: ModeAdvantage}, forced(t, 20, 7, 15))

	assert.Equal(t, ModeAdvantage, res.Mode)
	assert.Equal(t, []int{7, 15}, res.Rolls)
	assert.Equal(t, []int{15}, res.Kept)
	assert.Equal(t, []int{7}, res.Dropped)
	assert.Equal(t, 15, res.RawResult)
	assert.Equal(t, 18, res.FinalResult)
}

func TestResolveDisadvantageKeepsLowest(t *testing.T) {
	res := Resolve(Spec{DieFaces: 20, Quantity: 1, Modifier: 3, Mode: ModeDisadvantage}, forced(t, 20, 7, 15))

	assert.Equal(t, []int{7}, res.Kept)
	assert.Equal(t, []int{15}, res.Dropped)
	assert.Equal(t, 10, res.FinalResult)
}

func TestResolveAdvantageIgnoresQuantity(t *testing.T) {
	src, n := counting(forced(t, 20, 4, 9))
	res := Resolve(Spec{DieFaces: 20, Quantity: 5, Mode: ModeAdvantage}, src)

	assert.Equal(t, 2, *n)
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, 9, res.FinalResult)
}

func TestResolveAdvantageOnlyAppliesToD20(t *testing.T) {
	res := Resolve(Spec{DieFaces: 6, Quantity: 2, Mode: ModeAdvantage}, forced(t, 6, 3, 5))

	assert.Equal(t, ModeNormal, res.Mode)
	assert.Equal(t, 8, res.RawResult)
	assert.Equal(t, []int{3, 5}, res.Kept)
	assert.Empty(t, res.Dropped)
}

func TestResolveCriticalDoublesDiceNotModifier(t *testing.T) {
	src, n := counting(forced(t, 6, 1, 2, 3, 4))
	res := Resolve(Spec{DieFaces: 6, Quantity: 2, Modifier: 3, Critical: true}, src)

	assert.Equal(t, 4, *n)
	assert.Equal(t, 4, res.Quantity)
	assert.Equal(t, []int{1, 2, 3, 4}, res.Rolls)
	assert.Equal(t, 10, res.RawResult)
	assert.Equal(t, 13, res.FinalResult)
}

func TestResolveExtraDiceDoubleIndependently(t *testing.T) {
	// 1d8 base doubled to 2d8, 2d6 sneak attack doubled to 4d6.
	vals := []float64{
		(5 - 0.5) / 8, (8 - 0.5) / 8,
		(1 - 0.5) / 6, (2 - 0.5) / 6, (3 - 0.5) / 6, (6 - 0.5) / 6,
	}
	i := 0
	src := func() float64 { v := vals[i]; i++; return v }

	res := Resolve(Spec{
		DieFaces: 8,
		Quantity: 1,
		Modifier: 2,
		Critical: true,
		Extra:    &Extra{DieFaces: 6, Quantity: 2},
	}, src)

	require.Equal(t, len(vals), i)
	assert.Equal(t, []int{5, 8}, res.Rolls)
	assert.Equal(t, []int{1, 2, 3, 6}, res.ExtraRolls)
	assert.Equal(t, 6, res.ExtraDieFaces)
	assert.Equal(t, 25, res.RawResult)
	assert.Equal(t, 27, res.FinalResult)
	assert.Equal(t, "2d8 + 4d6 + 2 (crit)", res.Description)
}

func TestResolveClampsInvalidInput(t *testing.T) {
	res := Resolve(Spec{DieFaces: 0, Quantity: -4, Mode: "sideways"}, forced(t, 20, 11))

	assert.Equal(t, DefaultFaces, res.DieFaces)
	assert.Equal(t, 1, res.Quantity)
	assert.Equal(t, ModeNormal, res.Mode)
	assert.Equal(t, 11, res.FinalResult)

	capped := Resolve(Spec{DieFaces: 4, Quantity: 10_000}, NewSource(1))
	assert.Len(t, capped.Rolls, MaxQuantity)
}

func TestResolveQuantityCap(t *testing.T) {
	low := func() float64 { return 0 }

	atCap := Resolve(Spec{DieFaces: 6, Quantity: MaxQuantity, Modifier: 2}, low)
	assert.Len(t, atCap.Rolls, MaxQuantity)
	assert.Equal(t, MaxQuantity+2, atCap.FinalResult)

	over := Resolve(Spec{DieFaces: 6, Quantity: 150, Modifier: 2}, low)
	assert.Equal(t, MaxQuantity, over.Quantity)
	assert.Len(t, over.Rolls, MaxQuantity)
	assert.Equal(t, MaxQuantity+2, over.FinalResult)
	assert.Equal(t, "100d6 + 2", over.Description)

	high := Resolve(Spec{DieFaces: 6, Quantity: 150}, func() float64 { return 0.999 })
	assert.Equal(t, MaxQuantity*6, high.FinalResult)

	crit := Resolve(Spec{DieFaces: 6, Quantity: 150, Critical: true}, low)
	assert.Len(t, crit.Rolls, 2*MaxQuantity)
}

func TestResolveNaturalFlags(t *testing.T) {
	crit := Resolve(Spec{DieFaces: 20, Quantity: 1, Modifier: 1}, forced(t, 20, 20))
	assert.True(t, crit.Natural20)
	assert.False(t, crit.Natural1)

	fumble := Resolve(Spec{DieFaces: 20, Mode: ModeAdvantage}, forced(t, 20, 1, 1))
	assert.True(t, fumble.Natural1)

	multi := Resolve(Spec{DieFaces: 20, Quantity: 2}, forced(t, 20, 20, 20))
	assert.False(t, multi.Natural20)
}

func TestResolveToleratesOutOfRangeSource(t *testing.T) {
	assert.Equal(t, 6, Resolve(Spec{DieFaces: 6}, func() float64 { return 1 }).FinalResult)
	assert.Equal(t, 1, Resolve(Spec{DieFaces: 6}, func() float64 { return -2 }).FinalResult)
	assert.Equal(t, 6, Resolve(Spec{DieFaces: 6}, func() float64 { return math.Inf(1) }).FinalResult)
	assert.Equal(t, 1, Resolve(Spec{DieFaces: 6}, func() float64 { return math.Inf(-1) }).FinalResult)
	assert.Equal(t, 6, Resolve(Spec{DieFaces: 6}, func() float64 { return 1e300 }).FinalResult)
	assert.Equal(t, MaxFaces, Resolve(Spec{DieFaces: MaxFaces}, func() float64 { return 1 }).FinalResult)
}

func TestResolveIsDeterministicForSeed(t *testing.T) {
	spec := Spec{DieFaces: 12, Quantity: 3, Modifier: 1, Extra: &Extra{DieFaces: 4, Quantity: 1}}
	assert.Equal(t, Resolve(spec, NewSource(7)), Resolve(spec, NewSource(7)))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAdvantage, ParseMode(" Advantage "))
	assert.Equal(t, ModeDisadvantage, ParseMode("disadvantage"))
	assert.Equal(t, ModeNormal, ParseMode(""))
	assert.Equal(t, ModeNormal, ParseMode("weird"))
}
