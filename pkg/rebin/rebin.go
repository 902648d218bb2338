// Package rebin reduces HaFX science slice streams along the time and energy
// axes while preserving total counts.
package rebin

import (
	"fmt"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

// RebinEnergies sums each histogram into the coarse bins delimited by edges:
// bin j holds original bins [edges[j], edges[j+1]). Edges past the end of a
// histogram are clamped to its length. The input slices are left untouched.
func RebinEnergies(slices []decoder.ScienceSlice, edges []int) ([]decoder.ScienceSlice, error) {
	if err := checkEdges(edges); err != nil {
		return nil, err
	}

	rebinned := make([]decoder.ScienceSlice, len(slices))
	for i, slice := range slices {
		out := slice
		out.Histogram = sumRanges(slice.Histogram, edges)
		rebinned[i] = out
	}
	logInfo(fmt.Sprintf("Rebinned %d slices to %d energy bins", len(slices), max(len(edges)-1, 0)))
	return rebinned, nil
}

func checkEdges(edges []int) error {
	for i, edge := range edges {
		if edge < 0 {
			return &decoder.ArgumentError{Op: "RebinEnergies", Reason: fmt.Sprintf("negative edge %d", edge)}
		}
		if i > 0 && edge <= edges[i-1] {
			return &decoder.ArgumentError{
				Op:     "RebinEnergies",
				Reason: fmt.Sprintf("edges not strictly increasing at index %d (%d after %d)", i, edge, edges[i-1]),
			}
		}
	}
	return nil
}

// sumRanges never exceeds 32 bits since the sums run over disjoint ranges of
// a histogram whose bins already fit.
func sumRanges(histogram []uint32, edges []int) []uint32 {
	if len(edges) < 2 {
		return []uint32{}
	}
	out := make([]uint32, len(edges)-1)
	for j := range out {
		lo, hi := min(edges[j], len(histogram)), min(edges[j+1], len(histogram))
		var total uint64
		for _, v := range histogram[lo:hi] {
			total += uint64(v)
		}
		out[j] = uint32(total)
	}
	return out
}

// RebinTimes merges consecutive groups of numCombine slices. numCombine must
// be a positive multiple of 32 so every output slice spans whole seconds and
// keeps the anchor of its first slice. A trailing group shorter than
// numCombine is still emitted. Any merged histogram bin that no longer fits
// in 32 bits fails the whole call with an OverflowError. So does any of the
// summed num_evts, num_triggers, dead_time and anode_current counters, where
// a plain 32 bit sum would wrap and lose part of the total.
func RebinTimes(slices []decoder.ScienceSlice, numCombine int) ([]decoder.ScienceSlice, error) {
	if numCombine <= 0 || numCombine%decoder.SLICES_PER_SEC != 0 {
		return nil, &decoder.ArgumentError{
			Op:     "RebinTimes",
			Reason: fmt.Sprintf("num_combine %d must be a positive multiple of %d", numCombine, decoder.SLICES_PER_SEC),
		}
	}
	if len(slices) == 0 {
		return []decoder.ScienceSlice{}, nil
	}
	if !slices[0].HasAnchor() {
		return nil, &decoder.PreconditionError{Op: "RebinTimes", Reason: "first slice must have a valid time anchor"}
	}

	rebinned := make([]decoder.ScienceSlice, 0, (len(slices)+numCombine-1)/numCombine)
	for start := 0; start < len(slices); start += numCombine {
		end := min(start+numCombine, len(slices))
		merged, err := mergeGroup(slices[start:end])
		if err != nil {
			return nil, err
		}
		rebinned = append(rebinned, merged)
	}
	if end := len(slices) % numCombine; end != 0 {
		logInfo(fmt.Sprintf("Final time bin holds %d of %d slices", end, numCombine))
	}
	logInfo(fmt.Sprintf("Rebinned %d slices into %d time bins", len(slices), len(rebinned)))
	return rebinned, nil
}

type accumulator struct {
	numEvents    uint64
	numTriggers  uint64
	deadTime     uint64
	anodeCurrent uint64
	histogram    []uint64
}

func mergeGroup(group []decoder.ScienceSlice) (decoder.ScienceSlice, error) {
	ref := group[0]
	acc := accumulator{histogram: make([]uint64, len(ref.Histogram))}
	missedPPS := false
	for _, slice := range group {
		acc.numEvents += uint64(slice.NumEvents)
		acc.numTriggers += uint64(slice.NumTriggers)
		acc.deadTime += uint64(slice.DeadTime)
		acc.anodeCurrent += uint64(slice.AnodeCurrent)
		missedPPS = missedPPS || slice.MissedPPS
		if len(slice.Histogram) != len(acc.histogram) {
			return decoder.ScienceSlice{}, &decoder.PreconditionError{
				Op:     "RebinTimes",
				Reason: fmt.Sprintf("histogram length %d differs from %d in the same group", len(slice.Histogram), len(acc.histogram)),
			}
		}
		for i, v := range slice.Histogram {
			acc.histogram[i] += uint64(v)
		}
	}

	scalars := []struct {
		name  string
		value uint64
	}{
		{"num_evts", acc.numEvents},
		{"num_triggers", acc.numTriggers},
		{"dead_time", acc.deadTime},
		{"anode_current", acc.anodeCurrent},
	}
	for _, s := range scalars {
		if s.value > decoder.MaxCounter {
			return decoder.ScienceSlice{}, &decoder.OverflowError{Op: "RebinTimes", Field: s.name, Index: -1, Value: s.value}
		}
	}

	if decoder.GetVerbosity() > 2 {
		message := fmt.Sprintf("Merged %d slices from anchor %d: %d counts", len(group), ref.TimeAnchor, decoder.SumCounts(acc.histogram))
		decoder.GetLogger().Info(message, "rebin")
	}

	out := ref
	out.NumEvents = uint32(acc.numEvents)
	out.NumTriggers = uint32(acc.numTriggers)
	out.DeadTime = uint32(acc.deadTime)
	out.AnodeCurrent = uint32(acc.anodeCurrent)
	out.MissedPPS = missedPPS
	out.Histogram = make([]uint32, len(acc.histogram))
	for i, v := range acc.histogram {
		if v > decoder.MaxCounter {
			return decoder.ScienceSlice{}, &decoder.OverflowError{Op: "RebinTimes", Field: "histogram", Index: i, Value: v}
		}
		out.Histogram[i] = uint32(v)
	}
	return out, nil
}

// Params selects the reductions Rebin applies. A nil EnergyEdges or a zero
// NumCombine skips the corresponding axis.
type Params struct {
	EnergyEdges []int
	NumCombine  int
}

// Rebin applies the energy reduction first and then the time reduction.
func Rebin(slices []decoder.ScienceSlice, params Params) ([]decoder.ScienceSlice, error) {
	out := slices
	var err error
	if params.EnergyEdges != nil {
		out, err = RebinEnergies(out, params.EnergyEdges)
		if err != nil {
			return nil, err
		}
	}
	if params.NumCombine != 0 {
		out, err = RebinTimes(out, params.NumCombine)
		if err != nil {
			return nil, err
		}
	}
	if params.EnergyEdges == nil && params.NumCombine == 0 {
		copied := make([]decoder.ScienceSlice, len(slices))
		for i, slice := range slices {
			copied[i] = slice.Clone()
		}
		return copied, nil
	}
	return out, nil
}

func logInfo(message string) {
	if decoder.GetVerbosity() > 1 {
		decoder.GetLogger().Info(message, "rebin")
	}
}
