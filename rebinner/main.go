package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	decoder "github.com/impress-exp/decoder_go/pkg"
	"github.com/impress-exp/decoder_go/pkg/config"
	"github.com/impress-exp/decoder_go/pkg/logging"
	"github.com/impress-exp/decoder_go/pkg/rebin"
)

var (
	logger         = logging.Default()
	VerbosityLevel int
)

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	modeFlag := flag.String("mode", "", "Compression mode: time, energy, time+energy or none (overrides config)")
	flag.Parse()

	configuration, err := config.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if *modeFlag != "" {
		configuration.Compression = *modeFlag
	}
	if files := flag.Args(); len(files) > 0 {
		configuration.FilesIn = files
	}
	mode, err := rebin.ParseMode(configuration.Compression)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	fileLogger, logCloser, err := logging.Setup("rebinner", configuration.Logs)
	if err != nil {
		message := fmt.Errorf("Error setting up logs: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	defer logCloser.Close()
	logger = fileLogger

	VerbosityLevel = configuration.Verbosity
	decoder.SetLogger(logger)
	decoder.SetVerbosity(VerbosityLevel)

	revisions, err := configuration.RebinRevisions()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	failed := 0
	for _, filename := range configuration.FilesIn {
		out, err := rebinFile(filename, mode, revisions, configuration.GzipOutput)
		if err != nil {
			message := fmt.Errorf("error rebinning %s: %w", filename, err)
			logger.Error(message.Error())
			failed++
			continue
		}
		logger.Info(fmt.Sprintf("%s -> %s", filename, out), "main")
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func rebinFile(filename string, mode rebin.Mode, revisions []rebin.Revision, gzipOutput bool) (string, error) {
	if mode == rebin.ModeNone {
		return filename, nil
	}
	rev, err := rebin.RevisionForFile(filename, revisions, time.Now())
	if err != nil {
		return "", err
	}

	source, err := decoder.OpenSource(filename)
	if err != nil {
		return "", err
	}
	slices, err := decoder.ReadAllSlices(source)
	source.Close()
	if err != nil {
		return "", err
	}

	rebinned, err := rebin.Rebin(slices, rev.ParamsFor(mode))
	if err != nil {
		return "", err
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Revision %s: %d slices -> %d", rev.Name, len(slices), len(rebinned))
		logger.Info(message, "main")
	}

	out := rebin.RebinnedName(mode, filename)
	return out, writeRebinned(out, rebinned, gzipOutput || decoder.IsGzipName(filename))
}

func writeRebinned(filename string, slices []decoder.ScienceSlice, compress bool) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return &decoder.ErrOpenFile{Filename: filename, Err: err}
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	buffered := bufio.NewWriter(file)
	var w io.Writer = buffered
	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(buffered)
		w = zw
	}
	if err := decoder.WriteAllSlices(w, slices); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	return buffered.Flush()
}
