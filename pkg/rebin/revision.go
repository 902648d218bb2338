package rebin

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

// Revision is one set of in-flight rebinning parameters, valid for files
// produced on or after Start.
type Revision struct {
	Name        string
	Start       time.Time
	NumCombine  int
	EnergyEdges []int
}

// FirstRevision went into use on 2024-178.
var FirstRevision = Revision{
	Name:        "first",
	Start:       time.Date(2024, time.June, 26, 0, 0, 0, 0, time.UTC),
	NumCombine:  128,
	EnergyEdges: []int{0, 10, 20, 30, 40, 60, 90, 124},
}

func DefaultRevisions() []Revision {
	r := FirstRevision
	r.EnergyEdges = slices.Clone(FirstRevision.EnergyEdges)
	return []Revision{r}
}

// SelectRevision returns the latest revision whose start is not after t.
func SelectRevision(revisions []Revision, t time.Time) (Revision, bool) {
	var selected Revision
	found := false
	for _, rev := range revisions {
		if rev.Start.After(t) {
			continue
		}
		if !found || rev.Start.After(selected.Start) {
			selected = rev
			found = true
		}
	}
	return selected, found
}

type Mode string

const (
	ModeNone       Mode = "none"
	ModeTime       Mode = "time"
	ModeEnergy     Mode = "energy"
	ModeTimeEnergy Mode = "time+energy"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNone, ModeTime, ModeEnergy, ModeTimeEnergy:
		return m, nil
	}
	return "", &decoder.ArgumentError{Op: "ParseMode", Reason: fmt.Sprintf("unknown compression mode %q", s)}
}

func (m Mode) HasTime() bool {
	return strings.Contains(string(m), "time")
}

func (m Mode) HasEnergy() bool {
	return strings.Contains(string(m), "energy")
}

// ParamsFor derives the Rebin parameters of a compression mode.
func (rev Revision) ParamsFor(mode Mode) Params {
	var params Params
	if mode.HasEnergy() {
		params.EnergyEdges = slices.Clone(rev.EnergyEdges)
	}
	if mode.HasTime() {
		params.NumCombine = rev.NumCombine
	}
	return params
}

// DATE_LAYOUT is the year-dayofyear-hour-minute-second stamp of file names.
const DATE_LAYOUT = "2006-002-15-04-05"

// FileName holds the parts of an IDENT_DATE_#.ext data file name.
type FileName struct {
	Identifier string
	Date       time.Time
	Index      string
}

func ParseFileName(path string) (FileName, error) {
	base := filepath.Base(path)
	parts := strings.Split(base, "_")
	if len(parts) != 3 {
		return FileName{}, &decoder.ArgumentError{
			Op:     "ParseFileName",
			Reason: fmt.Sprintf("%q does not match IDENT_DATE_#.ext", base),
		}
	}
	date, err := time.Parse(DATE_LAYOUT, parts[1])
	if err != nil {
		return FileName{}, fmt.Errorf("error parsing date of %q: %w", base, err)
	}
	index, _, _ := strings.Cut(parts[2], ".")
	return FileName{Identifier: parts[0], Date: date, Index: index}, nil
}

// RebinnedName prefixes the file part of path with the compression mode.
func RebinnedName(mode Mode, path string) string {
	dir, file := filepath.Split(path)
	return filepath.Join(dir, string(mode)+"-"+file)
}

const FullResolution = "full_resolution"

// DataFormat reports which reduction produced a file from its name prefix.
func DataFormat(path string) string {
	base := filepath.Base(path)
	for _, mode := range []Mode{ModeTimeEnergy, ModeTime, ModeEnergy} {
		if strings.HasPrefix(base, string(mode)) {
			return string(mode)
		}
	}
	return FullResolution
}

// RevisionForFile picks the revision in force when the file at path was
// written. Names without a date, or dated before every revision, fall back to
// the revision in force at now.
func RevisionForFile(path string, revisions []Revision, now time.Time) (Revision, error) {
	if name, err := ParseFileName(path); err == nil {
		if rev, ok := SelectRevision(revisions, name.Date); ok {
			return rev, nil
		}
	}
	if rev, ok := SelectRevision(revisions, now); ok {
		return rev, nil
	}
	return Revision{}, &decoder.PreconditionError{Op: "RevisionForFile", Reason: "no rebin revision in force"}
}

// SliceWidth is the time span of one record in the named file. Time rebinned
// files span NumCombine slices per record of the revision RevisionForFile
// picks for them, which is the one the rebinner used.
func SliceWidth(path string, revisions []Revision) (time.Duration, error) {
	if !Mode(DataFormat(path)).HasTime() {
		return decoder.SLICE_PERIOD, nil
	}
	rev, err := RevisionForFile(path, revisions, time.Now())
	if err != nil {
		return 0, err
	}
	return time.Duration(rev.NumCombine) * decoder.SLICE_PERIOD, nil
}

// EnergyAxis returns the bin edges on the fine ADC axis and the number of
// meaningful histogram bins of the science slices stored at path. fine holds
// the full resolution edges. Energy rebinned files keep 123 bins on disk, of
// which only the first len(EnergyEdges)-1 carry counts.
func EnergyAxis(path string, revisions []Revision, fine []uint32) ([]uint32, int, error) {
	if !Mode(DataFormat(path)).HasEnergy() {
		return fine, decoder.NUM_HG_BINS, nil
	}
	rev, err := RevisionForFile(path, revisions, time.Now())
	if err != nil {
		return nil, 0, err
	}
	bins := max(len(rev.EnergyEdges)-1, 0)
	if fine == nil {
		return nil, bins, nil
	}
	return CoarseEdges(fine, rev.EnergyEdges), bins, nil
}

// CoarseEdges maps energy rebinning edges, given as indices into the
// original bins, onto the fine edges. Indices past the end are clamped the
// same way RebinEnergies clamps them.
func CoarseEdges(fine []uint32, edges []int) []uint32 {
	if len(fine) == 0 {
		return nil
	}
	out := make([]uint32, len(edges))
	for i, e := range edges {
		out[i] = fine[min(max(e, 0), len(fine)-1)]
	}
	return out
}
