package rebin

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

func TestParseFileName(t *testing.T) {
	name, err := ParseFileName("/data/time-hafx-sci_2024-180-13-05-09_3.bin.gz")
	require.NoError(t, err)
	assert.Equal(t, "time-hafx-sci", name.Identifier)
	assert.Equal(t, time.Date(2024, time.June, 28, 13, 5, 9, 0, time.UTC), name.Date)
	assert.Equal(t, "3", name.Index)

	_, err = ParseFileName("hafx-sci.bin")
	var argErr *decoder.ArgumentError
	assert.True(t, errors.As(err, &argErr))

	_, err = ParseFileName("hafx-sci_yesterday_0.bin")
	assert.Error(t, err)
}

func TestDataFormat(t *testing.T) {
	tests := map[string]string{
		"time+energy-hafx-sci_2024-180-00-00-00_0.bin": "time+energy",
		"time-hafx-sci_2024-180-00-00-00_0.bin":        "time",
		"/a/b/energy-hafx-sci_2024-180-00-00-00_0.bin": "energy",
		"hafx-sci_2024-180-00-00-00_0.bin":             FullResolution,
	}
	for fn, want := range tests {
		t.Run(fn, func(t *testing.T) {
			assert.Equal(t, want, DataFormat(fn))
		})
	}
}

func TestRebinnedName(t *testing.T) {
	assert.Equal(t, "/data/time+energy-hafx_2024-180-00-00-00_0.bin",
		RebinnedName(ModeTimeEnergy, "/data/hafx_2024-180-00-00-00_0.bin"))
	assert.Equal(t, "energy-x.bin", RebinnedName(ModeEnergy, "x.bin"))
}

func TestSliceWidth(t *testing.T) {
	revisions := DefaultRevisions()
	tests := []struct {
		name string
		file string
		want time.Duration
	}{
		{"time rebinned after revision", "time-hafx-sci_2024-180-00-00-00_0.bin", 4 * time.Second},
		{"time rebinned before revision", "time-hafx-sci_2024-100-00-00-00_0.bin", 4 * time.Second},
		{"time rebinned without date", "time-hafx-sci.bin", 4 * time.Second},
		{"full resolution", "hafx-sci_2024-180-00-00-00_0.bin", decoder.SLICE_PERIOD},
		{"revision start day", "time+energy-hafx-sci_2024-178-00-00-00_0.bin", 4 * time.Second},
		{"energy only", "energy-hafx-sci_2024-180-00-00-00_0.bin", decoder.SLICE_PERIOD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SliceWidth(tt.file, revisions)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectRevision(t *testing.T) {
	second := Revision{Name: "second", Start: FirstRevision.Start.AddDate(0, 1, 0), NumCombine: 64}
	revisions := []Revision{second, FirstRevision}

	rev, ok := SelectRevision(revisions, FirstRevision.Start.AddDate(0, 0, 3))
	require.True(t, ok)
	assert.Equal(t, "first", rev.Name)

	rev, ok = SelectRevision(revisions, second.Start.AddDate(1, 0, 0))
	require.True(t, ok)
	assert.Equal(t, "second", rev.Name)

	_, ok = SelectRevision(revisions, FirstRevision.Start.AddDate(0, 0, -1))
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("time+energy")
	require.NoError(t, err)
	assert.True(t, mode.HasTime())
	assert.True(t, mode.HasEnergy())

	params := FirstRevision.ParamsFor(ModeEnergy)
	assert.Equal(t, FirstRevision.EnergyEdges, params.EnergyEdges)
	assert.Zero(t, params.NumCombine)

	_, err = ParseMode("frequency")
	var argErr *decoder.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestRevisionForFile(t *testing.T) {
	second := Revision{Name: "second", Start: FirstRevision.Start.AddDate(0, 1, 0), NumCombine: 64}
	revisions := []Revision{FirstRevision, second}
	now := second.Start.AddDate(0, 2, 0)

	tests := []struct {
		name string
		file string
		want string
	}{
		{"dated in first", "hafx-sci_2024-180-00-00-00_0.bin", "first"},
		{"dated in second", "time-hafx-sci_2024-250-00-00-00_0.bin", "second"},
		{"before every revision", "hafx-sci_2023-001-00-00-00_0.bin", "second"},
		{"no date", "hafx-sci.bin", "second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev, err := RevisionForFile(tt.file, revisions, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rev.Name)
		})
	}

	_, err := RevisionForFile("hafx-sci.bin", revisions, FirstRevision.Start.AddDate(-1, 0, 0))
	var precondition *decoder.PreconditionError
	assert.True(t, errors.As(err, &precondition))
}

func TestEnergyAxis(t *testing.T) {
	mapping, err := LinearMapping(NUM_FINE_CHANNELS, 10, 16, DefaultReversal)
	require.NoError(t, err)
	fine, err := ReverseMapping(mapping)
	require.NoError(t, err)
	require.Len(t, fine, decoder.NUM_HG_BINS+1)
	revisions := DefaultRevisions()

	t.Run("full resolution", func(t *testing.T) {
		edges, bins, err := EnergyAxis("hafx-sci_2024-180-00-00-00_0.bin", revisions, fine)
		require.NoError(t, err)
		assert.Equal(t, decoder.NUM_HG_BINS, bins)
		assert.Equal(t, fine, edges)
	})

	t.Run("time only", func(t *testing.T) {
		edges, bins, err := EnergyAxis("time-hafx-sci_2024-180-00-00-00_0.bin", revisions, fine)
		require.NoError(t, err)
		assert.Equal(t, decoder.NUM_HG_BINS, bins)
		assert.Equal(t, fine, edges)
	})

	for _, file := range []string{
		"energy-hafx-sci_2024-180-00-00-00_0.bin",
		"time+energy-hafx-sci_2024-180-00-00-00_0.bin",
	} {
		t.Run(file, func(t *testing.T) {
			edges, bins, err := EnergyAxis(file, revisions, fine)
			require.NoError(t, err)
			assert.Equal(t, 7, bins)
			require.Len(t, edges, 8)
			assert.Equal(t, fine[0], edges[0])
			assert.Equal(t, fine[10], edges[1])
			assert.Equal(t, fine[90], edges[6])
			assert.Equal(t, DefaultReversal.Sentinel, edges[7])
		})
	}

	t.Run("energy without mapping", func(t *testing.T) {
		edges, bins, err := EnergyAxis("energy-hafx-sci_2024-180-00-00-00_0.bin", revisions, nil)
		require.NoError(t, err)
		assert.Nil(t, edges)
		assert.Equal(t, 7, bins)
	})
}

func TestEnergyAxisMatchesStoredSlices(t *testing.T) {
	slices := make([]decoder.ScienceSlice, 4)
	for i := range slices {
		hist := make([]uint32, decoder.NUM_HG_BINS)
		for j := range hist {
			hist[j] = uint32(j + 1)
		}
		slices[i] = decoder.ScienceSlice{Channel: decoder.C1, TimeAnchor: testAnchor, Histogram: hist}
	}
	rebinned, err := RebinEnergies(slices, FirstRevision.EnergyEdges)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, decoder.WriteAllSlices(&buf, rebinned))
	stored, err := decoder.ReadAllSlices(&buf)
	require.NoError(t, err)
	require.Len(t, stored[0].Histogram, decoder.NUM_HG_BINS)

	_, bins, err := EnergyAxis("energy-hafx-sci_2024-180-00-00-00_0.bin", DefaultRevisions(), nil)
	require.NoError(t, err)
	assert.Equal(t, rebinned[0].Histogram, stored[0].Histogram[:bins])
	for _, v := range stored[0].Histogram[bins:] {
		assert.Zero(t, v)
	}
}
