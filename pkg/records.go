package decoder

import (
	"fmt"
	"math"
)

const (
	NUM_HG_BINS    = 123
	SLICES_PER_SEC = 32
	MaxCounter     = math.MaxUint32

	// Firmware tick sizes of the HaFX time slice counters
	DEAD_TIME_NS_PER_TICK     = 800
	ANODE_CURRENT_NA_PER_TICK = 25
)

type Channel uint8

const (
	C1 Channel = iota
	M1
	M5
	X1
)

var channelStrings = []string{"c1", "m1", "m5", "x1"}

func (c Channel) String() string {
	if int(c) >= len(channelStrings) {
		return fmt.Sprintf("ch%d", uint8(c))
	}
	return channelStrings[c]
}

func ParseChannel(s string) (Channel, error) {
	for i, v := range channelStrings {
		if v == s {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("invalid channel: %s", s)
}

// ScienceSlice is one 1/32 s histogram from a HaFX detector. The histogram
// has NUM_HG_BINS entries as decoded and fewer after energy rebinning.
type ScienceSlice struct {
	Channel      Channel
	BufferNumber uint16
	NumEvents    uint32
	NumTriggers  uint32
	DeadTime     uint32
	AnodeCurrent uint32
	Histogram    []uint32
	TimeAnchor   uint32
	MissedPPS    bool
}

// Wire layout, 516 bytes packed.
type scienceSliceStruct struct {
	Channel      uint8
	BufferNumber uint16
	NumEvents    uint32
	NumTriggers  uint32
	DeadTime     uint32
	AnodeCurrent uint32
	Histogram    [NUM_HG_BINS]uint32
	TimeAnchor   uint32
	MissedPPS    bool
}

func (s scienceSliceStruct) toSlice() ScienceSlice {
	hist := make([]uint32, NUM_HG_BINS)
	copy(hist, s.Histogram[:])
	return ScienceSlice{
		Channel:      Channel(s.Channel),
		BufferNumber: s.BufferNumber,
		NumEvents:    s.NumEvents,
		NumTriggers:  s.NumTriggers,
		DeadTime:     s.DeadTime,
		AnodeCurrent: s.AnodeCurrent,
		Histogram:    hist,
		TimeAnchor:   s.TimeAnchor,
		MissedPPS:    s.MissedPPS,
	}
}

// Clone returns a copy that shares no memory with s.
func (s ScienceSlice) Clone() ScienceSlice {
	c := s
	c.Histogram = append([]uint32(nil), s.Histogram...)
	return c
}

func (s ScienceSlice) HasAnchor() bool {
	return s.TimeAnchor != 0
}

func (s ScienceSlice) TotalCounts() uint64 {
	return SumCounts(s.Histogram)
}

func (s ScienceSlice) DeadTimeNs() uint64 {
	return uint64(s.DeadTime) * DEAD_TIME_NS_PER_TICK
}

func (s ScienceSlice) AnodeCurrentNA() uint64 {
	return uint64(s.AnodeCurrent) * ANODE_CURRENT_NA_PER_TICK
}

// HafxHealth is the health block of one HaFX detector, 20 bytes packed.
type HafxHealth struct {
	ArmTemp              uint16
	SipmTemp             uint16
	SipmOperatingVoltage uint16
	SipmTargetVoltage    uint16
	Counts               uint32
	DeadTime             uint32
	RealTime             uint32
}

// 0.01 K, 0.01 V and one 40 MHz clock cycle per tick
func (h HafxHealth) ArmTempK() float64 { return 0.01 * float64(h.ArmTemp) }
func (h HafxHealth) SipmTempK() float64 { return 0.01 * float64(h.SipmTemp) }
func (h HafxHealth) SipmOperatingVoltageV() float64 { return 0.01 * float64(h.SipmOperatingVoltage) }
func (h HafxHealth) SipmTargetVoltageV() float64 { return 0.01 * float64(h.SipmTargetVoltage) }
func (h HafxHealth) DeadTimeNs() uint64 { return 25 * uint64(h.DeadTime) }
func (h HafxHealth) RealTimeNs() uint64 { return 25 * uint64(h.RealTime) }

// X123Health is the health block of the X-123 spectrometer, 21 bytes packed.
type X123Health struct {
	BoardTemp        int8
	DetHighVoltage   int16
	DetTemp          uint16
	FastCounts       uint32
	SlowCounts       uint32
	AccumulationTime uint32
	RealTime         uint32
}

func (h X123Health) BoardTempK() float64 { return float64(h.BoardTemp) + 273.15 }
func (h X123Health) DetHighVoltageV() float64 { return 0.5 * float64(h.DetHighVoltage) }
func (h X123Health) DetTempK() float64 { return 0.1 * float64(h.DetTemp) }

// HealthRecord is one periodic health packet, 105 bytes packed.
type HealthRecord struct {
	Timestamp uint32
	C1        HafxHealth
	M1        HafxHealth
	M5        HafxHealth
	X1        HafxHealth
	X123      X123Health
}

// Hafx returns the health block of a HaFX channel.
func (h HealthRecord) Hafx(ch Channel) HafxHealth {
	switch ch {
	case C1:
		return h.C1
	case M1:
		return h.M1
	case M5:
		return h.M5
	default:
		return h.X1
	}
}
