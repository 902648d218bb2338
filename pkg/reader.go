package decoder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const MAX_X123_DEBUG_SIZE = 1 << 20

// Reader decodes records from a byte stream in a single forward pass. It is
// not safe for concurrent use.
type Reader struct {
	r      *bufio.Reader
	offset int64
}

func NewReader(src io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(src)}
}

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// readChunk reads exactly n bytes. Running out of data, even halfway through
// the chunk, is the end of the stream and reported as io.EOF.
func (r *Reader) readChunk(n int) ([]byte, error) {
	buf := make([]byte, n)
	nRead, err := io.ReadFull(r.r, buf)
	r.offset += int64(nRead)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			if nRead > 0 && verbosity > 0 {
				message := fmt.Sprintf("Dropping %d trailing bytes at byte %d", nRead, r.offset)
				logger.Info(message, "reader")
			}
			return nil, io.EOF
		}
		return nil, err
	}
	return buf, nil
}

func readFixed[T any](r *Reader) (T, error) {
	var record T
	data, err := r.readChunk(binary.Size(record))
	if err != nil {
		return record, err
	}
	err = binary.Read(bytes.NewReader(data), binary.LittleEndian, &record)
	return record, err
}

func (r *Reader) readUint16() (uint16, error) {
	data, err := r.readChunk(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (r *Reader) readUint32() (uint32, error) {
	data, err := r.readChunk(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (r *Reader) ReadScienceSlice() (ScienceSlice, error) {
	raw, err := readFixed[scienceSliceStruct](r)
	if err != nil {
		return ScienceSlice{}, err
	}
	slice := raw.toSlice()
	if verbosity > 2 {
		message := fmt.Sprintf("Slice ch %v, buffer %d, anchor %d, events %d",
			slice.Channel, slice.BufferNumber, slice.TimeAnchor, slice.NumEvents)
		logger.Info(message, "reader")
	}
	return slice, nil
}

func (r *Reader) ReadHealth() (HealthRecord, error) {
	return readFixed[HealthRecord](r)
}

// ReadDebug reads one type tagged HaFX debug frame. Self-describing frames
// peek their count field without consuming it, then read the whole frame
// including that count.
func (r *Reader) ReadDebug() (DebugRecord, error) {
	start := r.offset
	code, err := r.readChunk(1)
	if err != nil {
		return DebugRecord{}, err
	}
	debugType := DebugType(code[0])
	layout, ok := debugLayouts[debugType]
	if !ok {
		return DebugRecord{}, &DecodeError{
			Record: "hafx debug",
			Offset: start,
			Reason: fmt.Sprintf("unknown type code %d", code[0]),
		}
	}

	size := layout.fixedSize()
	if layout.selfDescribing() {
		header, err := r.r.Peek(layout.headerSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return DebugRecord{}, io.EOF
			}
			return DebugRecord{}, err
		}
		size = layout.sizeFromHeader(header)
	}

	payload, err := r.readChunk(size)
	if err != nil {
		return DebugRecord{}, err
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Debug %v, %d bytes", debugType, size)
		logger.Info(message, "reader")
	}
	return DebugRecord{Type: debugType, Payload: payload}, nil
}

// ReadListMode reads a count prefixed buffer of packed events followed by
// the UNIX time the buffer was flushed.
func (r *Reader) ReadListMode() (ListModeBuffer, error) {
	numEvents, err := r.readUint16()
	if err != nil {
		return ListModeBuffer{}, err
	}
	data, err := r.readChunk(4 * int(numEvents))
	if err != nil {
		return ListModeBuffer{}, err
	}
	timestamp, err := r.readUint32()
	if err != nil {
		return ListModeBuffer{}, err
	}

	events := make([]ListModeEvent, numEvents)
	for i := range events {
		events[i] = UnpackListModeEvent(binary.LittleEndian.Uint32(data[4*i:]))
	}
	if verbosity > 2 {
		message := fmt.Sprintf("List mode buffer: %d events, timestamp %d", numEvents, timestamp)
		logger.Info(message, "reader")
	}
	return ListModeBuffer{Events: events, Timestamp: timestamp}, nil
}

func (r *Reader) ReadX123Spectrum() (X123Spectrum, error) {
	var spectrum X123Spectrum
	timestamp, err := r.readUint32()
	if err != nil {
		return spectrum, err
	}
	status, err := r.readChunk(X123_STATUS_SIZE)
	if err != nil {
		return spectrum, err
	}
	numBins, err := r.readUint16()
	if err != nil {
		return spectrum, err
	}
	data, err := r.readChunk(4 * int(numBins))
	if err != nil {
		return spectrum, err
	}

	spectrum.Timestamp = timestamp
	copy(spectrum.Status[:], status)
	spectrum.Histogram = make([]uint32, numBins)
	for i := range spectrum.Histogram {
		spectrum.Histogram[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return spectrum, nil
}

func (r *Reader) ReadX123Debug() (X123DebugRecord, error) {
	start := r.offset
	code, err := r.readChunk(1)
	if err != nil {
		return X123DebugRecord{}, err
	}
	debugType := X123DebugType(code[0])
	if int(debugType) >= len(x123DebugStrings) {
		return X123DebugRecord{}, &DecodeError{
			Record: "x123 debug",
			Offset: start,
			Reason: fmt.Sprintf("unknown type code %d", code[0]),
		}
	}
	size, err := r.readUint32()
	if err != nil {
		return X123DebugRecord{}, err
	}
	if size > MAX_X123_DEBUG_SIZE {
		return X123DebugRecord{}, &DecodeError{
			Record: "x123 debug",
			Offset: start,
			Reason: fmt.Sprintf("declared size %d exceeds %d", size, MAX_X123_DEBUG_SIZE),
		}
	}
	payload, err := r.readChunk(int(size))
	if err != nil {
		return X123DebugRecord{}, err
	}
	return X123DebugRecord{Type: debugType, Payload: payload}, nil
}

// ReadAllSlices decodes every science slice in src.
func ReadAllSlices(src io.Reader) ([]ScienceSlice, error) {
	r := NewReader(src)
	slices := make([]ScienceSlice, 0)
	for {
		slice, err := r.ReadScienceSlice()
		if err != nil {
			if err == io.EOF {
				return slices, nil
			}
			return slices, err
		}
		slices = append(slices, slice)
	}
}
