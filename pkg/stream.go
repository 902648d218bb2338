package decoder

import (
	"fmt"
	"io"
)

type RecordKind int

const (
	ScienceKind RecordKind = iota
	HealthKind
	HafxDebugKind
	ListModeKind
	X123ScienceKind
	X123DebugKind
)

var recordKindStrings = []string{
	"science",
	"health",
	"hafx-debug",
	"list-mode",
	"x123-science",
	"x123-debug",
}

func (k RecordKind) String() string {
	if k < ScienceKind || int(k) >= len(recordKindStrings) {
		return "UNKNOWN"
	}
	return recordKindStrings[k]
}

func ParseRecordKind(s string) (RecordKind, error) {
	for i, v := range recordKindStrings {
		if v == s {
			return RecordKind(i), nil
		}
	}
	return 0, fmt.Errorf("invalid record kind: %s", s)
}

func (k RecordKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RecordKind) UnmarshalText(text []byte) error {
	kind, err := ParseRecordKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Record is any decoded telemetry record.
type Record interface {
	Kind() RecordKind
}

func (ScienceSlice) Kind() RecordKind { return ScienceKind }
func (HealthRecord) Kind() RecordKind { return HealthKind }
func (DebugRecord) Kind() RecordKind { return HafxDebugKind }
func (ListModeBuffer) Kind() RecordKind { return ListModeKind }
func (X123Spectrum) Kind() RecordKind { return X123ScienceKind }
func (X123DebugRecord) Kind() RecordKind { return X123DebugKind }

// RecordReader yields records of one kind until the stream ends.
type RecordReader struct {
	reader *Reader
	kind   RecordKind
	count  int
}

func NewRecordReader(src io.Reader, kind RecordKind) *RecordReader {
	return &RecordReader{reader: NewReader(src), kind: kind}
}

// Next returns the next record, or io.EOF once the stream is exhausted. A
// truncated final record is treated as the end of the stream.
func (rr *RecordReader) Next() (Record, error) {
	var record Record
	var err error
	switch rr.kind {
	case ScienceKind:
		record, err = rr.reader.ReadScienceSlice()
	case HealthKind:
		record, err = rr.reader.ReadHealth()
	case HafxDebugKind:
		record, err = rr.reader.ReadDebug()
	case ListModeKind:
		record, err = rr.reader.ReadListMode()
	case X123ScienceKind:
		record, err = rr.reader.ReadX123Spectrum()
	case X123DebugKind:
		record, err = rr.reader.ReadX123Debug()
	default:
		return nil, fmt.Errorf("unknown record kind: %d", rr.kind)
	}
	if err != nil {
		if err == io.EOF && verbosity > 0 {
			message := fmt.Sprintf("End of %v stream after %d records", rr.kind, rr.count)
			logger.Info(message, "reader")
		}
		return nil, err
	}
	rr.count++
	return record, nil
}

// Count is the number of records returned so far.
func (rr *RecordReader) Count() int {
	return rr.count
}

// ReadAll drains a stream of one record kind.
func ReadAll(src io.Reader, kind RecordKind) ([]Record, error) {
	rr := NewRecordReader(src, kind)
	records := make([]Record, 0)
	for {
		record, err := rr.Next()
		if err != nil {
			if err == io.EOF {
				return records, nil
			}
			return records, err
		}
		records = append(records, record)
	}
}
