package rebin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

// NUM_FINE_CHANNELS is the length of the table uploaded to the digitizer,
// mapping each of its ADC bins to one of the HaFX histogram labels.
const NUM_FINE_CHANNELS = 2048

// ChannelMapping maps fine ADC channels to coarse histogram labels. It is
// immutable once built.
type ChannelMapping struct {
	labels []int
}

func NewChannelMapping(labels []int) ChannelMapping {
	return ChannelMapping{labels: append([]int(nil), labels...)}
}

func (m ChannelMapping) Len() int {
	return len(m.labels)
}

func (m ChannelMapping) Label(channel int) int {
	return m.labels[channel]
}

func (m ChannelMapping) Labels() []int {
	return append([]int(nil), m.labels...)
}

// ReversalConfig describes how a coarse label range is turned back into bin
// edges on the fine ADC axis.
type ReversalConfig struct {
	FirstLabel int
	LastLabel  int
	Scale      uint32
	Sentinel   uint32
}

// DefaultReversal undoes the nominal 2048 to 123 bin mapping. The digitizer
// halves the ADC range, so fine indices are doubled, and the last bin is
// closed at 4097.
var DefaultReversal = ReversalConfig{
	FirstLabel: 5,
	LastLabel:  127,
	Scale:      2,
	Sentinel:   4097,
}

// NumEdges is the length of the slice Reverse returns.
func (c ReversalConfig) NumEdges() int {
	return c.LastLabel - c.FirstLabel + 2
}

// Reverse returns, for every label from FirstLabel to LastLabel, Scale times
// the first fine channel carrying it, followed by the Sentinel.
func (c ReversalConfig) Reverse(m ChannelMapping) ([]uint32, error) {
	if c.LastLabel < c.FirstLabel {
		return nil, &decoder.ArgumentError{
			Op:     "ReverseMapping",
			Reason: fmt.Sprintf("label range [%d, %d] is empty", c.FirstLabel, c.LastLabel),
		}
	}

	firstIndex := make(map[int]int, c.NumEdges())
	for channel, label := range m.labels {
		if _, seen := firstIndex[label]; !seen {
			firstIndex[label] = channel
		}
	}

	edges := make([]uint32, 0, c.NumEdges())
	for label := c.FirstLabel; label <= c.LastLabel; label++ {
		channel, ok := firstIndex[label]
		if !ok {
			return nil, &decoder.LookupError{Table: "channel mapping", Label: label}
		}
		edges = append(edges, c.Scale*uint32(channel))
	}
	return append(edges, c.Sentinel), nil
}

func ReverseMapping(m ChannelMapping) ([]uint32, error) {
	return DefaultReversal.Reverse(m)
}

// LinearMapping builds a forward table of size channels. Channels below first
// are discarded into label 0, then each label of cfg gets width consecutive
// channels and whatever remains goes to cfg.LastLabel.
func LinearMapping(size, first, width int, cfg ReversalConfig) (ChannelMapping, error) {
	numLabels := cfg.LastLabel - cfg.FirstLabel + 1
	if first < 0 || width <= 0 || numLabels <= 0 || first+numLabels*width > size {
		return ChannelMapping{}, &decoder.ArgumentError{
			Op: "LinearMapping",
			Reason: fmt.Sprintf("%d labels of width %d after channel %d do not fit in %d channels",
				numLabels, width, first, size),
		}
	}
	labels := make([]int, size)
	for channel := first; channel < size; channel++ {
		labels[channel] = min(cfg.FirstLabel+(channel-first)/width, cfg.LastLabel)
	}
	return ChannelMapping{labels: labels}, nil
}

// ParseChannelMapping reads whitespace separated labels, one per fine
// channel, in the format uploaded to the instrument.
func ParseChannelMapping(r io.Reader) (ChannelMapping, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	labels := make([]int, 0, NUM_FINE_CHANNELS)
	for scanner.Scan() {
		label, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return ChannelMapping{}, fmt.Errorf("error parsing channel %d of mapping: %w", len(labels), err)
		}
		if label < 0 {
			return ChannelMapping{}, &decoder.ArgumentError{
				Op:     "ParseChannelMapping",
				Reason: fmt.Sprintf("negative label %d at channel %d", label, len(labels)),
			}
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return ChannelMapping{}, fmt.Errorf("error reading mapping: %w", err)
	}
	return ChannelMapping{labels: labels}, nil
}

func LoadMappingFile(path string) (ChannelMapping, error) {
	file, err := os.Open(path)
	if err != nil {
		return ChannelMapping{}, &decoder.ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	mapping, err := ParseChannelMapping(file)
	if err != nil {
		return ChannelMapping{}, fmt.Errorf("error loading %s: %w", path, err)
	}
	if mapping.Len() != NUM_FINE_CHANNELS && decoder.GetVerbosity() > 0 {
		message := fmt.Sprintf("Mapping %s has %d channels, expected %d", path, mapping.Len(), NUM_FINE_CHANNELS)
		decoder.GetLogger().Info(message, "binmap")
	}
	return mapping, nil
}
