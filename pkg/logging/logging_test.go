package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	decoder "github.com/impress-exp/decoder_go/pkg"
	"github.com/impress-exp/decoder_go/pkg/config"
)

var _ decoder.Logger = Logger{}

func TestLoggerFormat(t *testing.T) {
	var info, errs bytes.Buffer
	logger := New(&info, &errs)

	logger.Info("Reading file", "main")
	logger.With("run", "abc").Info("Decoded", "reader")
	logger.Error("bad record")

	lines := bytes.Split(bytes.TrimSpace(info.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Regexp(t, regexp.MustCompile(`^\[\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\] \[main\] Reading file$`), string(lines[0]))
	assert.Regexp(t, regexp.MustCompile(`\[abc\] \[reader\] Decoded$`), string(lines[1]))
	assert.Contains(t, errs.String(), `"msg":"bad record"`)
	assert.Contains(t, errs.String(), `"level":"ERROR"`)
}

func TestSetupRotatingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closer, err := Setup("decoder", config.LogConfig{Directory: dir, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("hello", "test")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "decoder.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[test] hello")
}

func TestSetupWithoutDirectory(t *testing.T) {
	_, closer, err := Setup("decoder", config.LogConfig{})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}
