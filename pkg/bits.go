package decoder

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Bit layout of a stripped NRL list mode event, least significant bit first
//
//	bits  0-24  relative timestamp (200 ns ticks)
//	bits 25-28  energy code
//	bit     29  PPS marker
//	bit     30  piled up
//	bit     31  out of range
const (
	LM_TIMESTAMP_BITS = 25
	LM_ENERGY_BITS    = 4

	lmTimestampShift  = 0
	lmEnergyShift     = lmTimestampShift + LM_TIMESTAMP_BITS
	lmPulseShift      = lmEnergyShift + LM_ENERGY_BITS
	lmPiledUpShift    = lmPulseShift + 1
	lmOutOfRangeShift = lmPiledUpShift + 1

	LM_TIMESTAMP_MAX = 1<<LM_TIMESTAMP_BITS - 1
	LM_ENERGY_MAX    = 1<<LM_ENERGY_BITS - 1
)

func mask[T constraints.Unsigned](width uint) T {
	return T(1)<<width - 1
}

func extractBits[T constraints.Unsigned](word T, shift, width uint) T {
	return (word >> shift) & mask[T](width)
}

func insertBits[T constraints.Unsigned](word T, value T, shift, width uint) T {
	m := mask[T](width) << shift
	return (word &^ m) | ((value << shift) & m)
}

// SumCounts adds unsigned counters of any width into 64 bits so callers can
// check the result against a narrower counter width.
func SumCounts[T constraints.Unsigned](values []T) uint64 {
	var total uint64
	for _, v := range values {
		total += uint64(v)
	}
	return total
}

type ListModeEvent struct {
	RelativeTimestamp uint32
	Energy            uint8
	PulseMarker       bool
	PiledUp           bool
	OutOfRange        bool
}

func flag(word uint32, shift uint) bool {
	return extractBits(word, shift, 1) == 1
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// UnpackListModeEvent splits one little endian event word into its fields.
func UnpackListModeEvent(word uint32) ListModeEvent {
	return ListModeEvent{
		RelativeTimestamp: extractBits(word, lmTimestampShift, LM_TIMESTAMP_BITS),
		Energy:            uint8(extractBits(word, lmEnergyShift, LM_ENERGY_BITS)),
		PulseMarker:       flag(word, lmPulseShift),
		PiledUp:           flag(word, lmPiledUpShift),
		OutOfRange:        flag(word, lmOutOfRangeShift),
	}
}

// PackListModeEvent is the inverse of UnpackListModeEvent. Fields wider than
// their bit allocation are rejected instead of truncated.
func PackListModeEvent(evt ListModeEvent) (uint32, error) {
	if evt.RelativeTimestamp > LM_TIMESTAMP_MAX {
		return 0, &ArgumentError{
			Op:     "PackListModeEvent",
			Reason: fmt.Sprintf("relative timestamp %d does not fit in %d bits", evt.RelativeTimestamp, LM_TIMESTAMP_BITS),
		}
	}
	if evt.Energy > LM_ENERGY_MAX {
		return 0, &ArgumentError{
			Op:     "PackListModeEvent",
			Reason: fmt.Sprintf("energy %d does not fit in %d bits", evt.Energy, LM_ENERGY_BITS),
		}
	}
	var word uint32
	word = insertBits(word, evt.RelativeTimestamp, lmTimestampShift, LM_TIMESTAMP_BITS)
	word = insertBits(word, uint32(evt.Energy), lmEnergyShift, LM_ENERGY_BITS)
	word = insertBits(word, boolBit(evt.PulseMarker), lmPulseShift, 1)
	word = insertBits(word, boolBit(evt.PiledUp), lmPiledUpShift, 1)
	word = insertBits(word, boolBit(evt.OutOfRange), lmOutOfRangeShift, 1)
	return word, nil
}
