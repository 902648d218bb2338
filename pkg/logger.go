package decoder

type Logger interface {
	Info(message string, module string)
	Error(string)
}

type nopLogger struct{}

func (nopLogger) Info(string, string) {}
func (nopLogger) Error(string)        {}

var logger Logger = nopLogger{}
var verbosity int

func SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	logger = l
}

// SetVerbosity controls how chatty the decoder is through the installed
// Logger. 0 is silent, 1 logs per file, 2 per record, 3 per field.
func SetVerbosity(v int) {
	verbosity = v
}

// GetLogger returns the installed Logger so companion packages log through
// the same sink.
func GetLogger() Logger {
	return logger
}

func GetVerbosity() int {
	return verbosity
}
