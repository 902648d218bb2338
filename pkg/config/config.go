// Package config loads the settings shared by the decoder and rebinner
// programs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	decoder "github.com/impress-exp/decoder_go/pkg"
	"github.com/impress-exp/decoder_go/pkg/rebin"
)

type LogConfig struct {
	Directory  string `json:"directory" yaml:"directory"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// RevisionConfig is a rebinning revision as written in configuration files,
// with its start given as year-dayofyear.
type RevisionConfig struct {
	Name        string `json:"name" yaml:"name"`
	Start       string `json:"start" yaml:"start"`
	NumCombine  int    `json:"num_combine" yaml:"num_combine"`
	EnergyEdges []int  `json:"energy_edges" yaml:"energy_edges"`
}

type Configuration struct {
	Verbosity        int              `json:"verbosity" yaml:"verbosity"`
	FilesIn          []string         `json:"files_in" yaml:"files_in"`
	OutputDir        string           `json:"output_dir" yaml:"output_dir"`
	FileOut          string           `json:"file_out" yaml:"file_out"`
	RecordKind       string           `json:"record_kind" yaml:"record_kind"`
	Compression      string           `json:"compression" yaml:"compression"`
	GzipOutput       bool             `json:"gzip_output" yaml:"gzip_output"`
	BinMapFile       string           `json:"bin_map_file" yaml:"bin_map_file"`
	MappingRevision  string           `json:"mapping_revision" yaml:"mapping_revision"`
	Revisions        []RevisionConfig `json:"revisions" yaml:"revisions"`
	NoDB             bool             `json:"no_db" yaml:"no_db"`
	Driver           string           `json:"driver" yaml:"driver"`
	Host             string           `json:"host" yaml:"host"`
	User             string           `json:"user" yaml:"user"`
	Passwd           string           `json:"pass" yaml:"pass"`
	DBName           string           `json:"dbname" yaml:"dbname"`
	DBPath           string           `json:"db_path" yaml:"db_path"`
	CompressionLevel int              `json:"compression_level" yaml:"compression_level"`
	Logs             LogConfig        `json:"logs" yaml:"logs"`
}

func defaultConfiguration() Configuration {
	var config Configuration

	// Set default values
	config.Verbosity = 0
	config.OutputDir = "."
	config.RecordKind = decoder.ScienceKind.String()
	config.Compression = string(rebin.ModeTimeEnergy)
	config.GzipOutput = true
	config.MappingRevision = "first"
	config.NoDB = true
	config.Driver = rebin.DriverSQLite
	config.Host = "localhost"
	config.User = "impress"
	config.DBName = "impress"
	config.DBPath = "impress.db"
	config.CompressionLevel = 4
	config.Logs = LogConfig{MaxSizeMB: 10, MaxAgeDays: 28, MaxBackups: 5}
	for _, rev := range rebin.DefaultRevisions() {
		config.Revisions = append(config.Revisions, RevisionConfig{
			Name:        rev.Name,
			Start:       rev.Start.Format(rebin.REVISION_DATE_LAYOUT),
			NumCombine:  rev.NumCombine,
			EnergyEdges: rev.EnergyEdges,
		})
	}
	return config
}

// LoadConfiguration reads a JSON or, for .yaml and .yml files, YAML file on
// top of the defaults. Fields missing from the file keep their default.
func LoadConfiguration(filename string) (Configuration, error) {
	config := defaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, &decoder.ErrOpenFile{Filename: filename, Err: err}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (c Configuration) Validate() error {
	if _, err := decoder.ParseRecordKind(c.RecordKind); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := rebin.ParseMode(c.Compression); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.NoDB && c.Driver != rebin.DriverMySQL && c.Driver != rebin.DriverSQLite {
		return fmt.Errorf("invalid configuration: unsupported driver %q", c.Driver)
	}
	if _, err := c.RebinRevisions(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Configuration) Kind() decoder.RecordKind {
	kind, _ := decoder.ParseRecordKind(c.RecordKind)
	return kind
}

func (c Configuration) Mode() rebin.Mode {
	mode, _ := rebin.ParseMode(c.Compression)
	return mode
}

func (c Configuration) RebinRevisions() ([]rebin.Revision, error) {
	revisions := make([]rebin.Revision, 0, len(c.Revisions))
	for _, rc := range c.Revisions {
		start, err := time.Parse(rebin.REVISION_DATE_LAYOUT, rc.Start)
		if err != nil {
			return nil, fmt.Errorf("revision %q: %w", rc.Name, err)
		}
		revisions = append(revisions, rebin.Revision{
			Name:        rc.Name,
			Start:       start,
			NumCombine:  rc.NumCombine,
			EnergyEdges: append([]int(nil), rc.EnergyEdges...),
		})
	}
	return revisions, nil
}

// DSN is the data source name handed to rebin.ConnectToDatabase.
func (c Configuration) DSN() string {
	if c.Driver == rebin.DriverMySQL {
		return rebin.MySQLDSN(c.User, c.Passwd, c.Host, c.DBName)
	}
	return c.DBPath
}

// OutputPath places the output for an input file in OutputDir, swapping its
// extension for ext.
func (c Configuration) OutputPath(input string, ext string) string {
	if c.FileOut != "" && len(c.FilesIn) <= 1 {
		return c.FileOut
	}
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.OutputDir, base+ext)
}
