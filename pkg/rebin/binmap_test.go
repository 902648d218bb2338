package rebin

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

func nominalMapping(t *testing.T) ChannelMapping {
	t.Helper()
	m, err := LinearMapping(NUM_FINE_CHANNELS, 5, 16, DefaultReversal)
	require.NoError(t, err)
	return m
}

func TestReverseMapping(t *testing.T) {
	edges, err := ReverseMapping(nominalMapping(t))
	require.NoError(t, err)

	require.Len(t, edges, 124)
	assert.Equal(t, uint32(10), edges[0])
	assert.Equal(t, uint32(4097), edges[len(edges)-1])
	assert.Equal(t, uint32(2*(5+16)), edges[1])
	for i := 1; i < len(edges); i++ {
		assert.Greater(t, edges[i], edges[i-1])
	}
}

func TestReverseMappingMissingLabel(t *testing.T) {
	labels := nominalMapping(t).Labels()
	for i, label := range labels {
		if label == 42 {
			labels[i] = 41
		}
	}
	_, err := ReverseMapping(NewChannelMapping(labels))

	var lookup *decoder.LookupError
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, 42, lookup.Label)
	assert.Contains(t, err.Error(), "label 42 not found")
}

func TestReversalConfig(t *testing.T) {
	m := NewChannelMapping([]int{0, 1, 1, 2, 2, 2, 3})
	cfg := ReversalConfig{FirstLabel: 1, LastLabel: 3, Scale: 1, Sentinel: 7}
	edges, err := cfg.Reverse(m)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3, 6, 7}, edges)

	_, err = ReversalConfig{FirstLabel: 3, LastLabel: 1}.Reverse(m)
	var argErr *decoder.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestLinearMappingTooWide(t *testing.T) {
	_, err := LinearMapping(NUM_FINE_CHANNELS, 5, 17, DefaultReversal)
	var argErr *decoder.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestParseChannelMapping(t *testing.T) {
	m, err := ParseChannelMapping(strings.NewReader("0 0 5\n5 6\t7\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 5, 5, 6, 7}, m.Labels())

	_, err = ParseChannelMapping(strings.NewReader("1 x 3"))
	assert.Error(t, err)

	_, err = ParseChannelMapping(strings.NewReader("1 -2"))
	var argErr *decoder.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestLoadMappingFile(t *testing.T) {
	labels := nominalMapping(t).Labels()
	fields := make([]string, len(labels))
	for i, label := range labels {
		fields[i] = strconv.Itoa(label)
	}
	path := filepath.Join(t.TempDir(), "bins.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(fields, "\n")), 0o644))

	m, err := LoadMappingFile(path)
	require.NoError(t, err)
	assert.Equal(t, labels, m.Labels())

	_, err = LoadMappingFile(filepath.Join(t.TempDir(), "missing.txt"))
	var openErr *decoder.ErrOpenFile
	assert.True(t, errors.As(err, &openErr))
}

func TestChannelMappingImmutable(t *testing.T) {
	labels := []int{5, 6}
	m := NewChannelMapping(labels)
	labels[0] = 99
	m.Labels()[1] = 99
	assert.Equal(t, []int{5, 6}, m.Labels())
}
