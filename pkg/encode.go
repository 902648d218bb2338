package decoder

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteScienceSlice writes slice in the 516 byte wire layout. Histograms
// shorter than NUM_HG_BINS, as left by energy rebinning, are zero padded.
func WriteScienceSlice(w io.Writer, slice ScienceSlice) error {
	if len(slice.Histogram) > NUM_HG_BINS {
		return &ArgumentError{
			Op:     "WriteScienceSlice",
			Reason: fmt.Sprintf("histogram has %d bins, at most %d fit", len(slice.Histogram), NUM_HG_BINS),
		}
	}
	raw := scienceSliceStruct{
		Channel:      uint8(slice.Channel),
		BufferNumber: slice.BufferNumber,
		NumEvents:    slice.NumEvents,
		NumTriggers:  slice.NumTriggers,
		DeadTime:     slice.DeadTime,
		AnodeCurrent: slice.AnodeCurrent,
		TimeAnchor:   slice.TimeAnchor,
		MissedPPS:    slice.MissedPPS,
	}
	copy(raw.Histogram[:], slice.Histogram)
	return binary.Write(w, binary.LittleEndian, &raw)
}

// WriteAllSlices encodes slices back to back.
func WriteAllSlices(w io.Writer, slices []ScienceSlice) error {
	for i, slice := range slices {
		if err := WriteScienceSlice(w, slice); err != nil {
			return fmt.Errorf("error writing slice %d: %w", i, err)
		}
	}
	return nil
}
