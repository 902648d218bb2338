package main

import (
	"fmt"
	"strings"

	"github.com/impress-exp/decoder_go/pkg/config"
	"github.com/impress-exp/decoder_go/pkg/logging"
)

func printConfiguration(config config.Configuration, logger logging.Logger) {
	logger.Info(fmt.Sprintf("Files in: %s", strings.Join(config.FilesIn, ", ")), "config")
	logger.Info(fmt.Sprintf("Output dir: %s", config.OutputDir), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Record kind: %s", config.RecordKind), "config")
	logger.Info(fmt.Sprintf("Bin map file: %s", config.BinMapFile), "config")
	logger.Info(fmt.Sprintf("Mapping revision: %s", config.MappingRevision), "config")
	logger.Info(fmt.Sprintf("Rebin revisions: %d", len(config.Revisions)), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Driver: %s", config.Driver), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("DB path: %s", config.DBPath), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Log directory: %s", config.Logs.Directory), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
