package rebin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

const testAnchor = 1719400000

func makeSlices(n int) []decoder.ScienceSlice {
	slices := make([]decoder.ScienceSlice, n)
	for i := range slices {
		hist := make([]uint32, decoder.NUM_HG_BINS)
		for j := range hist {
			hist[j] = uint32((i + j) % 17)
		}
		slices[i] = decoder.ScienceSlice{
			Channel:      decoder.M1,
			BufferNumber: uint16(i % 32),
			NumEvents:    uint32(100 + i),
			NumTriggers:  uint32(200 + i),
			DeadTime:     uint32(i),
			AnodeCurrent: 2,
			Histogram:    hist,
		}
		if i%decoder.SLICES_PER_SEC == 0 {
			slices[i].TimeAnchor = testAnchor + uint32(i/decoder.SLICES_PER_SEC)
		}
	}
	return slices
}

func cloneAll(slices []decoder.ScienceSlice) []decoder.ScienceSlice {
	out := make([]decoder.ScienceSlice, len(slices))
	for i, s := range slices {
		out[i] = s.Clone()
	}
	return out
}

func totalCounts(slices []decoder.ScienceSlice) uint64 {
	var total uint64
	for _, s := range slices {
		total += s.TotalCounts()
	}
	return total
}

func TestRebinEnergies(t *testing.T) {
	slices := makeSlices(5)
	original := cloneAll(slices)
	edges := FirstRevision.EnergyEdges

	rebinned, err := RebinEnergies(slices, edges)
	require.NoError(t, err)
	require.Len(t, rebinned, len(slices))

	for i, out := range rebinned {
		require.Len(t, out.Histogram, len(edges)-1)
		assert.Equal(t, slices[i].TotalCounts(), out.TotalCounts(), "counts not conserved in slice %d", i)

		var want uint32
		for _, v := range slices[i].Histogram[0:10] {
			want += v
		}
		assert.Equal(t, want, out.Histogram[0])

		out.Histogram = slices[i].Histogram
		if diff := cmp.Diff(slices[i], out); diff != "" {
			t.Errorf("non-histogram fields changed (-in +out):\n%s", diff)
		}
	}
	if diff := cmp.Diff(original, slices); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestRebinEnergiesEdges(t *testing.T) {
	slices := makeSlices(1)

	t.Run("clamped past end", func(t *testing.T) {
		out, err := RebinEnergies(slices, []int{0, 100, 500})
		require.NoError(t, err)
		assert.Equal(t, slices[0].TotalCounts(), out[0].TotalCounts())
	})

	t.Run("fewer than two edges", func(t *testing.T) {
		out, err := RebinEnergies(slices, []int{3})
		require.NoError(t, err)
		assert.Empty(t, out[0].Histogram)
	})

	invalid := map[string][]int{
		"negative":       {-1, 10},
		"decreasing":     {0, 20, 10},
		"duplicate edge": {0, 10, 10},
	}
	for name, edges := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := RebinEnergies(slices, edges)
			var argErr *decoder.ArgumentError
			assert.True(t, errors.As(err, &argErr))
		})
	}
}

func TestRebinTimes(t *testing.T) {
	slices := makeSlices(100)
	slices[40].MissedPPS = true
	original := cloneAll(slices)

	rebinned, err := RebinTimes(slices, 64)
	require.NoError(t, err)
	require.Len(t, rebinned, 2)

	assert.Equal(t, totalCounts(slices), totalCounts(rebinned))
	assert.Equal(t, uint32(testAnchor), rebinned[0].TimeAnchor)
	assert.Equal(t, uint32(testAnchor+2), rebinned[1].TimeAnchor)
	assert.Equal(t, slices[0].BufferNumber, rebinned[0].BufferNumber)
	assert.True(t, rebinned[0].MissedPPS)
	assert.False(t, rebinned[1].MissedPPS)

	var events uint32
	for _, s := range slices[64:] {
		events += s.NumEvents
	}
	assert.Equal(t, events, rebinned[1].NumEvents)

	if diff := cmp.Diff(original, slices); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
	rebinned[0].Histogram[0] = 1 << 30
	assert.NotEqual(t, uint32(1<<30), slices[0].Histogram[0])
}

func TestRebinTimesArguments(t *testing.T) {
	slices := makeSlices(64)
	for _, n := range []int{31, 0, -32, 33} {
		_, err := RebinTimes(slices, n)
		var argErr *decoder.ArgumentError
		assert.True(t, errors.As(err, &argErr), "num_combine %d", n)
	}

	unanchored := makeSlices(64)
	unanchored[0].TimeAnchor = 0
	_, err := RebinTimes(unanchored, 32)
	var precondition *decoder.PreconditionError
	assert.True(t, errors.As(err, &precondition))

	_, err = RebinTimes(unanchored, 31)
	var argErr *decoder.ArgumentError
	assert.True(t, errors.As(err, &argErr), "argument check runs first")

	out, err := RebinTimes(nil, 32)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRebinTimesOverflow(t *testing.T) {
	t.Run("histogram", func(t *testing.T) {
		slices := makeSlices(32)
		slices[0].Histogram[7] = decoder.MaxCounter
		slices[1].Histogram[7] = 1

		_, err := RebinTimes(slices, 32)
		var overflow *decoder.OverflowError
		require.True(t, errors.As(err, &overflow))
		assert.Equal(t, "histogram", overflow.Field)
		assert.Equal(t, 7, overflow.Index)
	})

	t.Run("dead time", func(t *testing.T) {
		slices := makeSlices(32)
		slices[3].DeadTime = decoder.MaxCounter
		_, err := RebinTimes(slices, 32)
		var overflow *decoder.OverflowError
		require.True(t, errors.As(err, &overflow))
		assert.Equal(t, "dead_time", overflow.Field)
	})
}

func TestRebin(t *testing.T) {
	slices := makeSlices(96)
	params := FirstRevision.ParamsFor(ModeTimeEnergy)
	params.NumCombine = 32

	out, err := Rebin(slices, params)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Len(t, out[0].Histogram, 7)
	assert.Equal(t, totalCounts(slices), totalCounts(out))

	same, err := Rebin(slices, FirstRevision.ParamsFor(ModeNone))
	require.NoError(t, err)
	if diff := cmp.Diff(slices, same); diff != "" {
		t.Errorf("mode none changed slices (-in +out):\n%s", diff)
	}
}

type totals struct {
	numEvents, numTriggers, deadTime, anodeCurrent, counts uint64
}

func sumTotals(slices []decoder.ScienceSlice) totals {
	var t totals
	for _, s := range slices {
		t.numEvents += uint64(s.NumEvents)
		t.numTriggers += uint64(s.NumTriggers)
		t.deadTime += uint64(s.DeadTime)
		t.anodeCurrent += uint64(s.AnodeCurrent)
		t.counts += s.TotalCounts()
	}
	return t
}

func TestRebinTimesConservesTotals(t *testing.T) {
	slices := makeSlices(2100)
	for i := range slices {
		slices[i].AnodeCurrent = uint32(i % 7)
	}
	want := sumTotals(slices)

	for k := 1; k <= 10; k++ {
		numCombine := decoder.SLICES_PER_SEC * k
		t.Run(fmt.Sprintf("num_combine=%d", numCombine), func(t *testing.T) {
			rebinned, err := RebinTimes(slices, numCombine)
			require.NoError(t, err)
			assert.Len(t, rebinned, (len(slices)+numCombine-1)/numCombine)
			if diff := cmp.Diff(want, sumTotals(rebinned), cmp.AllowUnexported(totals{})); diff != "" {
				t.Errorf("totals changed (-want +got):\n%s", diff)
			}
		})
	}
}
