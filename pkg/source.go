package decoder

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

type gzipSource struct {
	*gzip.Reader
	file *os.File
}

func (s *gzipSource) Close() error {
	return errors.Join(s.Reader.Close(), s.file.Close())
}

type fileSource struct {
	*bufio.Reader
	file *os.File
}

func (s *fileSource) Close() error {
	return s.file.Close()
}

// OpenSource opens a telemetry file for reading. Gzip compressed files are
// recognized by their magic bytes and decompressed on the fly.
func OpenSource(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}

	buffered := bufio.NewReader(file)
	magic, err := buffered.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}

	if len(magic) == len(gzipMagic) && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(buffered)
		if err != nil {
			file.Close()
			return nil, &ErrOpenFile{Filename: path, Err: err}
		}
		if verbosity > 0 {
			logger.Info("Reading gzip compressed "+path, "source")
		}
		return &gzipSource{Reader: zr, file: file}, nil
	}
	return &fileSource{Reader: buffered, file: file}, nil
}

// IsGzipName reports whether a file name carries a gzip extension.
func IsGzipName(path string) bool {
	return strings.HasSuffix(path, ".gz")
}
