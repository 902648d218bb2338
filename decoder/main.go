package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	sqlx "github.com/jmoiron/sqlx"

	decoder "github.com/impress-exp/decoder_go/pkg"
	"github.com/impress-exp/decoder_go/pkg/config"
	"github.com/impress-exp/decoder_go/pkg/logging"
	"github.com/impress-exp/decoder_go/pkg/rebin"
	"github.com/impress-exp/decoder_go/pkg/writer"
)

var dbConn *sqlx.DB
var configuration config.Configuration

var (
	logger         = logging.Default()
	VerbosityLevel int
)

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = config.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	if files := flag.Args(); len(files) > 0 {
		configuration.FilesIn = files
	}

	fileLogger, logCloser, err := logging.Setup("decoder", configuration.Logs)
	if err != nil {
		message := fmt.Errorf("Error setting up logs: %w", err)
		logger.Error(message.Error())
		return
	}
	defer logCloser.Close()
	logger = fileLogger

	VerbosityLevel = configuration.Verbosity
	decoder.SetLogger(logger)
	decoder.SetVerbosity(VerbosityLevel)
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	ctx := context.Background()
	revisions, err := configuration.RebinRevisions()
	if err != nil {
		logger.Error(err.Error())
		return
	}

	if !configuration.NoDB {
		dbConn, err = rebin.ConnectToDatabase(configuration.Driver, configuration.DSN())
		if err != nil {
			message := fmt.Errorf("Error connection to database: %w", err)
			logger.Error(message.Error())
			return
		}
		defer dbConn.Close()

		stored, err := rebin.LoadRevisions(ctx, dbConn)
		if err != nil {
			message := fmt.Errorf("Error reading revisions, using configured ones: %w", err)
			logger.Error(message.Error())
		} else if len(stored) > 0 {
			revisions = stored
		}
	}

	binEdges, err := loadBinEdges(ctx)
	if err != nil {
		message := fmt.Errorf("Error loading bin mapping, bin edges will not be written: %w", err)
		logger.Error(message.Error())
	}

	start := time.Now()
	failed := 0
	for _, filename := range configuration.FilesIn {
		if err := processFile(filename, revisions, binEdges); err != nil {
			message := fmt.Errorf("error processing %s: %w", filename, err)
			logger.Error(message.Error())
			failed++
		}
	}
	message := fmt.Sprintf("Processed %d files (%d failed) in %d ms",
		len(configuration.FilesIn), failed, time.Since(start).Milliseconds())
	logger.Info(message, "main")
}

func loadBinEdges(ctx context.Context) ([]uint32, error) {
	if configuration.Kind() != decoder.ScienceKind {
		return nil, nil
	}
	var mapping rebin.ChannelMapping
	var err error
	switch {
	case configuration.BinMapFile != "":
		mapping, err = rebin.LoadMappingFile(configuration.BinMapFile)
	case dbConn != nil:
		mapping, err = rebin.LoadBinMapping(ctx, dbConn, configuration.MappingRevision)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rebin.ReverseMapping(mapping)
}

func processFile(filename string, revisions []rebin.Revision, binEdges []uint32) (err error) {
	kind := configuration.Kind()
	reader, err := NewFileReader(filename, kind)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, readErr := reader.readAll()
	if readErr != nil {
		// keep what was decoded before the bad record
		logger.Error(readErr.Error())
	}

	fileOut := configuration.OutputPath(filename, ".h5")
	w, err := writer.NewWriter(fileOut, configuration.CompressionLevel)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()

	format := rebin.DataFormat(filename)
	info := writer.NewRunInfo(filename, kind, format)
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Run %s: %s -> %s (%s)", info.ID, filename, fileOut, format)
		logger.Info(message, "main")
	}
	if err := w.WriteRunInfo(info); err != nil {
		return err
	}

	switch kind {
	case decoder.ScienceKind:
		return writeScience(w, filename, collect[decoder.ScienceSlice](records), revisions, binEdges)
	case decoder.HealthKind:
		return writeHealth(w, collect[decoder.HealthRecord](records))
	case decoder.ListModeKind:
		return writeListMode(w, collect[decoder.ListModeBuffer](records))
	case decoder.X123ScienceKind:
		return w.WriteX123(collect[decoder.X123Spectrum](records))
	case decoder.HafxDebugKind:
		return w.WriteDebug(collect[decoder.DebugRecord](records))
	case decoder.X123DebugKind:
		return logX123Debug(collect[decoder.X123DebugRecord](records))
	}
	return nil
}

func writeScience(w *writer.Writer, filename string, slices []decoder.ScienceSlice, revisions []rebin.Revision, binEdges []uint32) error {
	width := decoder.SLICE_PERIOD
	if sw, err := rebin.SliceWidth(filename, revisions); err == nil {
		width = sw
	} else if VerbosityLevel > 0 {
		message := fmt.Sprintf("Using %v slices for %s: %v", width, filename, err)
		logger.Info(message, "main")
	}

	times, err := decoder.SliceTimesWidth(slices, width)
	if err != nil {
		message := fmt.Errorf("times not reconstructed for %s: %w", filename, err)
		logger.Error(message.Error())
		times = nil
	}

	edges, bins, err := rebin.EnergyAxis(filename, revisions, binEdges)
	if err != nil {
		return err
	}
	for i := range slices {
		if len(slices[i].Histogram) > bins {
			slices[i].Histogram = slices[i].Histogram[:bins]
		}
	}
	if VerbosityLevel > 1 {
		message := fmt.Sprintf("%s holds %s data with %d energy bins", filename, rebin.DataFormat(filename), bins)
		logger.Info(message, "main")
	}
	if err := w.WriteScience(slices, times); err != nil {
		return err
	}
	if edges != nil {
		return w.WriteBinEdges(edges)
	}
	return nil
}

func writeHealth(w *writer.Writer, records []decoder.HealthRecord) error {
	if VerbosityLevel > 2 {
		message := fmt.Sprintf("HaFX health columns: %s", strings.Join(writer.Columns(writer.HafxHealthHDF5{}), ", "))
		logger.Info(message, "main")
	}
	if err := w.WriteHealth(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	summary, err := decoder.SummarizeHealth(records)
	if err != nil {
		return err
	}
	return w.WriteHealthSummary(summary)
}

func writeListMode(w *writer.Writer, buffers []decoder.ListModeBuffer) error {
	times := make([][]time.Time, len(buffers))
	for i, buf := range buffers {
		t, err := decoder.ListModeTimes(buf)
		if err != nil {
			if VerbosityLevel > 0 {
				message := fmt.Sprintf("buffer %d: %v", i, err)
				logger.Info(message, "main")
			}
			continue
		}
		times[i] = t
	}
	return w.WriteListMode(buffers, times)
}

func logX123Debug(records []decoder.X123DebugRecord) error {
	for i, r := range records {
		switch r.Type {
		case decoder.X123DebugASCIISettings:
			settings, err := r.ASCIISettings()
			if err != nil {
				return err
			}
			logger.Info(fmt.Sprintf("X-123 settings %d: %s", i, settings), "main")
		case decoder.X123DebugHistogram:
			hist, _, err := r.Histogram()
			if err != nil {
				return err
			}
			logger.Info(fmt.Sprintf("X-123 debug histogram %d: %d bins", i, len(hist)), "main")
		default:
			logger.Info(fmt.Sprintf("X-123 %v frame %d: %d bytes", r.Type, i, len(r.Payload)), "main")
		}
	}
	return nil
}
