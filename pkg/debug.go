package decoder

import (
	"encoding/binary"
	"fmt"
	"math"
)

type DebugType uint8

const (
	ArmCtrl DebugType = iota
	ArmCal
	ArmStatus
	FpgaCtrl
	FpgaOscilloscopeTrace
	FpgaStatistics
	FpgaWeights
	DebugHistogram
	DebugListMode
	NrlListFullSize
)

type registerKind int

const (
	regFloat32 registerKind = iota
	regUint16
	regUint32
)

func (k registerKind) size() int {
	if k == regUint16 {
		return 2
	}
	return 4
}

// debugLayout describes how to size a debug payload: either a fixed number of
// registers of one kind, or a frame whose size follows from headerSize peeked
// bytes.
type debugLayout struct {
	Name      string
	Kind      registerKind
	Registers int

	headerSize int
	// full frame size, header included
	sizeFromHeader func(header []byte) int
}

const (
	NRL_FULL_EVENT_SIZE = 12
	nrlCountSize        = 2
	nrlTimestampSize    = 4
)

// Register counts and kinds from the Bridgeport MDS documentation.
var debugLayouts = map[DebugType]debugLayout{
	ArmCtrl:               {Name: "arm_ctrl", Kind: regFloat32, Registers: 12},
	ArmCal:                {Name: "arm_cal", Kind: regFloat32, Registers: 64},
	ArmStatus:             {Name: "arm_status", Kind: regFloat32, Registers: 7},
	FpgaCtrl:              {Name: "fpga_ctrl", Kind: regUint16, Registers: 16},
	FpgaOscilloscopeTrace: {Name: "fpga_oscilloscope_trace", Kind: regUint16, Registers: 1024},
	FpgaStatistics:        {Name: "fpga_statistics", Kind: regUint32, Registers: 16},
	FpgaWeights:           {Name: "fpga_weights", Kind: regUint16, Registers: 1024},
	DebugHistogram:        {Name: "histogram", Kind: regUint32, Registers: 4096},
	DebugListMode:         {Name: "listmode", Kind: regUint16, Registers: 1024},
	NrlListFullSize: {
		Name:       "nrl_list_full_size",
		headerSize: nrlCountSize,
		sizeFromHeader: func(header []byte) int {
			numEvents := int(binary.LittleEndian.Uint16(header))
			return nrlCountSize + numEvents*NRL_FULL_EVENT_SIZE + nrlTimestampSize
		},
	},
}

func (t DebugType) String() string {
	if l, ok := debugLayouts[t]; ok {
		return l.Name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

func (l debugLayout) selfDescribing() bool {
	return l.sizeFromHeader != nil
}

func (l debugLayout) fixedSize() int {
	return l.Registers * l.Kind.size()
}

// DebugRecord is one HaFX debug readout: a type code and its raw payload.
type DebugRecord struct {
	Type    DebugType
	Payload []byte
}

// Registers decodes a fixed size payload into its register values.
func (d DebugRecord) Registers() ([]float64, error) {
	layout, ok := debugLayouts[d.Type]
	if !ok || layout.selfDescribing() {
		return nil, fmt.Errorf("debug type %v has no register layout", d.Type)
	}
	if len(d.Payload) != layout.fixedSize() {
		return nil, fmt.Errorf("debug type %v: payload is %d bytes, expected %d", d.Type, len(d.Payload), layout.fixedSize())
	}
	regs := make([]float64, layout.Registers)
	step := layout.Kind.size()
	for i := range regs {
		b := d.Payload[i*step : (i+1)*step]
		switch layout.Kind {
		case regFloat32:
			regs[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case regUint16:
			regs[i] = float64(binary.LittleEndian.Uint16(b))
		case regUint32:
			regs[i] = float64(binary.LittleEndian.Uint32(b))
		}
	}
	return regs, nil
}

// NrlFullList is the self-describing full size NRL list mode readout.
type NrlFullList struct {
	Events    [][NRL_FULL_EVENT_SIZE]byte
	Timestamp uint32
}

func (d DebugRecord) FullSizeList() (NrlFullList, error) {
	var list NrlFullList
	if d.Type != NrlListFullSize {
		return list, fmt.Errorf("debug type %v is not %v", d.Type, NrlListFullSize)
	}
	if len(d.Payload) < nrlCountSize+nrlTimestampSize {
		return list, &DecodeError{Record: "debug " + d.Type.String(), Reason: "payload too short"}
	}
	numEvents := int(binary.LittleEndian.Uint16(d.Payload))
	expected := nrlCountSize + numEvents*NRL_FULL_EVENT_SIZE + nrlTimestampSize
	if len(d.Payload) != expected {
		return list, &DecodeError{
			Record: "debug " + d.Type.String(),
			Reason: fmt.Sprintf("count %d implies %d bytes, got %d", numEvents, expected, len(d.Payload)),
		}
	}
	list.Events = make([][NRL_FULL_EVENT_SIZE]byte, numEvents)
	position := nrlCountSize
	for i := range list.Events {
		copy(list.Events[i][:], d.Payload[position:position+NRL_FULL_EVENT_SIZE])
		position += NRL_FULL_EVENT_SIZE
	}
	list.Timestamp = binary.LittleEndian.Uint32(d.Payload[position:])
	return list, nil
}
