package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListModeEventRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		event ListModeEvent
		word  uint32
	}{
		{"zero", ListModeEvent{}, 0},
		{"max timestamp", ListModeEvent{RelativeTimestamp: LM_TIMESTAMP_MAX}, 0x01ffffff},
		{"max energy", ListModeEvent{Energy: LM_ENERGY_MAX}, 0x1e000000},
		{"pulse", ListModeEvent{PulseMarker: true}, 1 << 29},
		{"piled up", ListModeEvent{PiledUp: true}, 1 << 30},
		{"out of range", ListModeEvent{OutOfRange: true}, 1 << 31},
		{
			"all set",
			ListModeEvent{RelativeTimestamp: LM_TIMESTAMP_MAX, Energy: LM_ENERGY_MAX, PulseMarker: true, PiledUp: true, OutOfRange: true},
			0xffffffff,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, err := PackListModeEvent(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.word, word)
			assert.Equal(t, tt.event, UnpackListModeEvent(word))
		})
	}
}

func TestPackListModeEventRejectsWideFields(t *testing.T) {
	tests := []struct {
		name  string
		event ListModeEvent
	}{
		{"timestamp", ListModeEvent{RelativeTimestamp: LM_TIMESTAMP_MAX + 1}},
		{"energy", ListModeEvent{Energy: LM_ENERGY_MAX + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PackListModeEvent(tt.event)
			var argErr *ArgumentError
			assert.True(t, errors.As(err, &argErr))
		})
	}
}

func TestUnpackFieldIsolation(t *testing.T) {
	evt := UnpackListModeEvent(0x2a000005)
	assert.Equal(t, uint32(5), evt.RelativeTimestamp)
	assert.Equal(t, uint8(5), evt.Energy)
	assert.True(t, evt.PulseMarker)
	assert.False(t, evt.PiledUp)
	assert.False(t, evt.OutOfRange)
}

func TestSumCounts(t *testing.T) {
	assert.Equal(t, uint64(3*MaxCounter), SumCounts([]uint32{MaxCounter, MaxCounter, MaxCounter}))
	assert.Equal(t, uint64(510), SumCounts([]uint8{255, 255}))
	assert.Equal(t, uint64(1<<40+1), SumCounts([]uint64{1 << 40, 1}))
	assert.Zero(t, SumCounts[uint16](nil))
}
