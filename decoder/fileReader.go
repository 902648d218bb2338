package main

import (
	"fmt"
	"io"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

// FileReader drains one telemetry file of a single record kind.
type FileReader struct {
	Filename string
	source   io.ReadCloser
	records  *decoder.RecordReader
}

func NewFileReader(filename string, kind decoder.RecordKind) (*FileReader, error) {
	source, err := decoder.OpenSource(filename)
	if err != nil {
		return nil, err
	}
	return &FileReader{
		Filename: filename,
		source:   source,
		records:  decoder.NewRecordReader(source, kind),
	}, nil
}

// readAll returns every record of the file. A decode error ends the file but
// keeps the records read before it.
func (f *FileReader) readAll() ([]decoder.Record, error) {
	records := make([]decoder.Record, 0)
	for {
		record, err := f.records.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return records, fmt.Errorf("error reading record %d of %s: %w", f.records.Count(), f.Filename, err)
		}
		records = append(records, record)
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Read %d records from %s", len(records), f.Filename)
		logger.Info(message, "fileReader")
	}
	return records, nil
}

func (f *FileReader) Close() error {
	return f.source.Close()
}

func collect[T decoder.Record](records []decoder.Record) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
