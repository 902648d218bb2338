package decoder

import (
	"bytes"
	"fmt"
)

const X123_STATUS_SIZE = 64

// X123Spectrum is one nominal X-123 science readout.
type X123Spectrum struct {
	Timestamp uint32
	Status    [X123_STATUS_SIZE]byte
	Histogram []uint32
}

type X123DebugType uint8

const (
	X123DebugHistogram X123DebugType = iota
	X123DebugDiagnostic
	X123DebugASCIISettings
)

var x123DebugStrings = []string{"histogram", "diagnostic", "ascii-settings"}

func (t X123DebugType) String() string {
	if int(t) >= len(x123DebugStrings) {
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
	return x123DebugStrings[t]
}

// X123DebugRecord is one X-123 debug readout, sized by its own u32 header.
type X123DebugRecord struct {
	Type    X123DebugType
	Payload []byte
}

// Histogram splits a debug histogram payload into 24-bit little endian bins
// and the trailing status block.
func (d X123DebugRecord) Histogram() ([]uint32, []byte, error) {
	if d.Type != X123DebugHistogram {
		return nil, nil, fmt.Errorf("x123 debug type %v is not a histogram", d.Type)
	}
	if len(d.Payload) < X123_STATUS_SIZE {
		return nil, nil, &DecodeError{Record: "x123 debug histogram", Reason: "payload shorter than status block"}
	}
	statusStart := len(d.Payload) - X123_STATUS_SIZE
	data, status := d.Payload[:statusStart], d.Payload[statusStart:]
	if len(data)%3 != 0 {
		return nil, nil, &DecodeError{
			Record: "x123 debug histogram",
			Reason: fmt.Sprintf("%d histogram bytes is not a multiple of 3", len(data)),
		}
	}
	histogram := make([]uint32, 0, len(data)/3)
	for i := 0; i < len(data); i += 3 {
		histogram = append(histogram, uint32(data[i])|uint32(data[i+1])<<8|uint32(data[i+2])<<16)
	}
	return histogram, status, nil
}

// ASCIISettings returns the NUL padded settings readback as a string.
func (d X123DebugRecord) ASCIISettings() (string, error) {
	if d.Type != X123DebugASCIISettings {
		return "", fmt.Errorf("x123 debug type %v is not ascii settings", d.Type)
	}
	if i := bytes.IndexByte(d.Payload, 0); i >= 0 {
		return string(d.Payload[:i]), nil
	}
	return string(d.Payload), nil
}
