package decoder

import (
	"fmt"
	"time"
)

const (
	SLICE_PERIOD = time.Second / SLICES_PER_SEC

	// The stripped NRL clock is the 25 ns FPGA clock divided by 8
	LM_TICK = 200 * time.Nanosecond

	// Offset added per detected rollover of the 25 bit relative counter
	LM_ROLLOVER_SHIFT uint64 = LM_TIMESTAMP_MAX
)

// SliceTimes returns the left edge of every slice plus one closing edge one
// slice period past the last slice. Slice i starts (i mod 32)/32 s after the
// most recent anchor, counting i from the start of the stream. The first
// slice must carry an anchor.
func SliceTimes(slices []ScienceSlice) ([]time.Time, error) {
	if len(slices) == 0 {
		return nil, &PreconditionError{Op: "SliceTimes", Reason: "no slices to anchor"}
	}
	if !slices[0].HasAnchor() {
		return nil, &PreconditionError{Op: "SliceTimes", Reason: "first slice has no time anchor"}
	}

	times := make([]time.Time, 0, len(slices)+1)
	var anchor time.Time
	for i, slice := range slices {
		if slice.HasAnchor() {
			anchor = time.Unix(int64(slice.TimeAnchor), 0).UTC()
		}
		frame := i % SLICES_PER_SEC
		times = append(times, anchor.Add(time.Duration(frame)*SLICE_PERIOD))
	}
	times = append(times, times[len(times)-1].Add(SLICE_PERIOD))
	if verbosity > 1 {
		message := fmt.Sprintf("Reconstructed %d slice times from %v to %v", len(slices), times[0], times[len(times)-1])
		logger.Info(message, "timestamps")
	}
	return times, nil
}

// SliceTimesWidth is SliceTimes for time rebinned streams, where every record
// covers width and carries its own anchor. Unanchored records continue from
// the previous edge.
func SliceTimesWidth(slices []ScienceSlice, width time.Duration) ([]time.Time, error) {
	if width <= 0 {
		return nil, &ArgumentError{Op: "SliceTimesWidth", Reason: fmt.Sprintf("non-positive bin width %v", width)}
	}
	if width == SLICE_PERIOD {
		return SliceTimes(slices)
	}
	if len(slices) == 0 || !slices[0].HasAnchor() {
		return nil, &PreconditionError{Op: "SliceTimesWidth", Reason: "first slice has no time anchor"}
	}

	times := make([]time.Time, 0, len(slices)+1)
	for i, slice := range slices {
		if slice.HasAnchor() {
			times = append(times, time.Unix(int64(slice.TimeAnchor), 0).UTC())
		} else {
			times = append(times, times[i-1].Add(width))
		}
	}
	times = append(times, times[len(times)-1].Add(width))
	return times, nil
}

// CorrectRollover unwraps 25 bit relative timestamps. Any decrease between
// consecutive events counts as exactly one rollover, which holds as long as
// events arrive faster than once per counter period.
func CorrectRollover(raw []uint32) []uint64 {
	corrected := make([]uint64, len(raw))
	var rollovers uint64
	for i, ts := range raw {
		if i > 0 && ts < raw[i-1] {
			rollovers++
		}
		corrected[i] = uint64(ts) + rollovers*LM_ROLLOVER_SHIFT
	}
	return corrected
}

// ListModeTimes assigns an absolute time to every event of a buffer. The last
// PPS marked event is taken to coincide with the buffer timestamp and every
// other event is placed relative to it.
func ListModeTimes(buf ListModeBuffer) ([]time.Time, error) {
	pulse := buf.lastPulse()
	if pulse < 0 {
		return nil, &PreconditionError{Op: "ListModeTimes", Reason: "no synchronization pulse in buffer"}
	}

	corrected := CorrectRollover(buf.RelativeTimestamps())
	reference := time.Unix(int64(buf.Timestamp), 0).UTC()
	pulseTicks := int64(corrected[pulse])

	times := make([]time.Time, len(corrected))
	for i, ticks := range corrected {
		times[i] = reference.Add(time.Duration(int64(ticks)-pulseTicks) * LM_TICK)
	}
	if verbosity > 2 {
		message := fmt.Sprintf("List mode buffer at %d: pulse at event %d of %d", buf.Timestamp, pulse, len(times))
		logger.Info(message, "timestamps")
	}
	return times, nil
}
