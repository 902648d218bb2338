// Package writer stores decoded telemetry in HDF5 files.
package writer

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/hdf5"

	decoder "github.com/impress-exp/decoder_go/pkg"
)

type RunInfoHDF5 struct {
	run_id      [STRLEN]byte
	source      [STRLEN]byte
	record_kind [STRLEN]byte
	data_format [STRLEN]byte
	created     int64
}

type SliceHDF5 struct {
	channel       uint8
	buffer_number uint16
	num_evts      uint32
	num_triggers  uint32
	dead_time     uint32
	anode_current uint32
	time_anchor   uint32
	missed_pps    uint8
}

type TimeHDF5 struct {
	unix float64
}

type BinEdgeHDF5 struct {
	edge uint32
}

type HealthTimeHDF5 struct {
	timestamp uint32
}

type HafxHealthHDF5 struct {
	arm_temp               uint16
	sipm_temp              uint16
	sipm_operating_voltage uint16
	sipm_target_voltage    uint16
	counts                 uint32
	dead_time              uint32
	real_time              uint32
}

type X123HealthHDF5 struct {
	board_temp        int8
	det_high_voltage  int16
	det_temp          uint16
	fast_counts       uint32
	slow_counts       uint32
	accumulation_time uint32
	real_time         uint32
}

type HealthSummaryHDF5 struct {
	field [STRLEN]byte
	mean  float64
	min   float64
	max   float64
}

type ListModeEventHDF5 struct {
	buffer             uint32
	relative_timestamp uint32
	energy             uint8
	pulse_marker       uint8
	piled_up           uint8
	out_of_range       uint8
	time               float64
}

type X123SpectrumHDF5 struct {
	timestamp uint32
	num_bins  uint16
}

type DebugFrameHDF5 struct {
	frame uint32
	kind  [STRLEN]byte
	size  uint32
}

type RegisterHDF5 struct {
	frame uint32
	index uint32
	value float64
}

// RunInfo identifies one processed input file.
type RunInfo struct {
	ID         uuid.UUID
	Source     string
	RecordKind decoder.RecordKind
	DataFormat string
	Created    time.Time
}

func NewRunInfo(source string, kind decoder.RecordKind, format string) RunInfo {
	return RunInfo{ID: uuid.New(), Source: source, RecordKind: kind, DataFormat: format, Created: time.Now().UTC()}
}

// Writer lays out one HDF5 file with a group per record family. Datasets
// are created with the first write that needs them.
type Writer struct {
	File     *hdf5.File
	Filename string
	Level    int

	groups   map[string]*hdf5.Group
	datasets map[string]*hdf5.Dataset
	rows     map[string]int
	order    []string
}

func NewWriter(filename string, compressionLevel int) (*Writer, error) {
	f, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &decoder.ErrOpenFile{Filename: filename, Err: err}
	}
	if decoder.GetVerbosity() > 0 {
		decoder.GetLogger().Info("Creating file: "+filename, "hdf5writer")
	}
	return &Writer{
		File:     f,
		Filename: filename,
		Level:    compressionLevel,
		groups:   make(map[string]*hdf5.Group),
		datasets: make(map[string]*hdf5.Dataset),
		rows:     make(map[string]int),
	}, nil
}

func (w *Writer) group(name string) (*hdf5.Group, error) {
	if g, ok := w.groups[name]; ok {
		return g, nil
	}
	g, err := createGroup(w.File, name)
	if err != nil {
		return nil, err
	}
	w.groups[name] = g
	return g, nil
}

func (w *Writer) table(groupName, name string, datatype interface{}) (*hdf5.Dataset, string, error) {
	key := groupName + "/" + name
	if d, ok := w.datasets[key]; ok {
		return d, key, nil
	}
	g, err := w.group(groupName)
	if err != nil {
		return nil, key, err
	}
	d, err := createTable(g, name, datatype, w.Level)
	if err != nil {
		return nil, key, err
	}
	w.datasets[key] = d
	w.order = append(w.order, key)
	return d, key, nil
}

func (w *Writer) array(groupName, name string, width int) (*hdf5.Dataset, string, error) {
	key := groupName + "/" + name
	if d, ok := w.datasets[key]; ok {
		return d, key, nil
	}
	g, err := w.group(groupName)
	if err != nil {
		return nil, key, err
	}
	d, err := create2dArray(g, name, width, w.Level)
	if err != nil {
		return nil, key, err
	}
	w.datasets[key] = d
	w.order = append(w.order, key)
	return d, key, nil
}

func appendRows[T any](w *Writer, groupName, name string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	var zero T
	dset, key, err := w.table(groupName, name, zero)
	if err != nil {
		return err
	}
	if err := writeArrayToTable(dset, &rows, w.rows[key]); err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	w.rows[key] += len(rows)
	return nil
}

func (w *Writer) appendMatrix(groupName, name string, data []uint32, width int) error {
	if len(data) == 0 {
		return nil
	}
	dset, key, err := w.array(groupName, name, width)
	if err != nil {
		return err
	}
	if err := write2dArray(dset, &data, w.rows[key], width); err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	w.rows[key] += len(data) / width
	return nil
}

func unixSeconds(times []time.Time) []TimeHDF5 {
	rows := make([]TimeHDF5, len(times))
	for i, t := range times {
		rows[i] = TimeHDF5{unix: float64(t.UnixNano()) / 1e9}
	}
	return rows
}

func (w *Writer) WriteRunInfo(info RunInfo) error {
	row := []RunInfoHDF5{{
		run_id:      convertToHdf5String(info.ID.String()),
		source:      convertToHdf5String(info.Source),
		record_kind: convertToHdf5String(info.RecordKind.String()),
		data_format: convertToHdf5String(info.DataFormat),
		created:     info.Created.Unix(),
	}}
	return appendRows(w, "Run", "runInfo", row)
}

// WriteScience stores slice metadata, one histogram row per slice, and the
// slice time edges. times may be nil when the stream could not be anchored.
func (w *Writer) WriteScience(slices []decoder.ScienceSlice, times []time.Time) error {
	if len(slices) == 0 {
		return nil
	}
	width := len(slices[0].Histogram)
	meta := make([]SliceHDF5, len(slices))
	histograms := make([]uint32, 0, len(slices)*width)
	for i, s := range slices {
		if len(s.Histogram) != width {
			return fmt.Errorf("slice %d has %d bins, expected %d", i, len(s.Histogram), width)
		}
		meta[i] = SliceHDF5{
			channel:       uint8(s.Channel),
			buffer_number: s.BufferNumber,
			num_evts:      s.NumEvents,
			num_triggers:  s.NumTriggers,
			dead_time:     s.DeadTime,
			anode_current: s.AnodeCurrent,
			time_anchor:   s.TimeAnchor,
			missed_pps:    boolToUint8(s.MissedPPS),
		}
		histograms = append(histograms, s.Histogram...)
	}
	if err := appendRows(w, "Science", "slices", meta); err != nil {
		return err
	}
	if err := w.appendMatrix("Science", "histograms", histograms, width); err != nil {
		return err
	}
	return appendRows(w, "Science", "times", unixSeconds(times))
}

// WriteBinEdges stores the ADC bin edges of the histogram axis.
func (w *Writer) WriteBinEdges(edges []uint32) error {
	rows := make([]BinEdgeHDF5, len(edges))
	for i, e := range edges {
		rows[i] = BinEdgeHDF5{edge: e}
	}
	return appendRows(w, "Science", "bin_edges", rows)
}

func hafxHealthRow(h decoder.HafxHealth) HafxHealthHDF5 {
	return HafxHealthHDF5{
		arm_temp:               h.ArmTemp,
		sipm_temp:              h.SipmTemp,
		sipm_operating_voltage: h.SipmOperatingVoltage,
		sipm_target_voltage:    h.SipmTargetVoltage,
		counts:                 h.Counts,
		dead_time:              h.DeadTime,
		real_time:              h.RealTime,
	}
}

func x123HealthRow(h decoder.X123Health) X123HealthHDF5 {
	return X123HealthHDF5{
		board_temp:        h.BoardTemp,
		det_high_voltage:  h.DetHighVoltage,
		det_temp:          h.DetTemp,
		fast_counts:       h.FastCounts,
		slow_counts:       h.SlowCounts,
		accumulation_time: h.AccumulationTime,
		real_time:         h.RealTime,
	}
}

// WriteHealth stores one table per detector block, in raw instrument units.
func (w *Writer) WriteHealth(records []decoder.HealthRecord) error {
	if len(records) == 0 {
		return nil
	}
	stamps := make([]HealthTimeHDF5, len(records))
	x123 := make([]X123HealthHDF5, len(records))
	hafx := make(map[decoder.Channel][]HafxHealthHDF5)
	channels := []decoder.Channel{decoder.C1, decoder.M1, decoder.M5, decoder.X1}
	for i, r := range records {
		stamps[i] = HealthTimeHDF5{timestamp: r.Timestamp}
		x123[i] = x123HealthRow(r.X123)
		for _, ch := range channels {
			hafx[ch] = append(hafx[ch], hafxHealthRow(r.Hafx(ch)))
		}
	}

	if err := appendRows(w, "Health", "timestamps", stamps); err != nil {
		return err
	}
	for _, ch := range channels {
		if err := appendRows(w, "Health", ch.String(), hafx[ch]); err != nil {
			return err
		}
	}
	return appendRows(w, "Health", "x123", x123)
}

func (w *Writer) WriteHealthSummary(summary []decoder.FieldSummary) error {
	rows := make([]HealthSummaryHDF5, len(summary))
	for i, s := range summary {
		rows[i] = HealthSummaryHDF5{field: convertToHdf5String(s.Field), mean: s.Mean, min: s.Min, max: s.Max}
	}
	return appendRows(w, "Health", "summary", rows)
}

// WriteListMode flattens buffers into one event table. times holds the
// absolute event times of each buffer, or nil for a buffer without a pulse.
func (w *Writer) WriteListMode(buffers []decoder.ListModeBuffer, times [][]time.Time) error {
	first := w.rows["ListMode/buffers"]
	var rows []ListModeEventHDF5
	for b, buf := range buffers {
		for i, evt := range buf.Events {
			row := ListModeEventHDF5{
				buffer:             uint32(first + b),
				relative_timestamp: evt.RelativeTimestamp,
				energy:             evt.Energy,
				pulse_marker:       boolToUint8(evt.PulseMarker),
				piled_up:           boolToUint8(evt.PiledUp),
				out_of_range:       boolToUint8(evt.OutOfRange),
			}
			if b < len(times) && times[b] != nil {
				row.time = float64(times[b][i].UnixNano()) / 1e9
			}
			rows = append(rows, row)
		}
	}
	stamps := make([]HealthTimeHDF5, len(buffers))
	for i, buf := range buffers {
		stamps[i] = HealthTimeHDF5{timestamp: buf.Timestamp}
	}
	if err := appendRows(w, "ListMode", "buffers", stamps); err != nil {
		return err
	}
	return appendRows(w, "ListMode", "events", rows)
}

// WriteX123 stores spectrum headers and, when every spectrum has the same
// number of bins, the spectra as a matrix.
func (w *Writer) WriteX123(spectra []decoder.X123Spectrum) error {
	if len(spectra) == 0 {
		return nil
	}
	headers := make([]X123SpectrumHDF5, len(spectra))
	width := len(spectra[0].Histogram)
	uniform := width > 0
	data := make([]uint32, 0, len(spectra)*width)
	for i, s := range spectra {
		headers[i] = X123SpectrumHDF5{timestamp: s.Timestamp, num_bins: uint16(len(s.Histogram))}
		uniform = uniform && len(s.Histogram) == width
		data = append(data, s.Histogram...)
	}
	if err := appendRows(w, "X123", "spectra", headers); err != nil {
		return err
	}
	if !uniform {
		if decoder.GetVerbosity() > 0 {
			decoder.GetLogger().Info("X-123 spectra differ in length, histograms not written", "hdf5writer")
		}
		return nil
	}
	return w.appendMatrix("X123", "histograms", data, width)
}

// WriteDebug stores one row per HaFX debug frame and the decoded registers
// of the fixed layout frames.
func (w *Writer) WriteDebug(records []decoder.DebugRecord) error {
	first := w.rows["Debug/frames"]
	frames := make([]DebugFrameHDF5, len(records))
	var registers []RegisterHDF5
	for i, r := range records {
		frame := uint32(first + i)
		frames[i] = DebugFrameHDF5{frame: frame, kind: convertToHdf5String(r.Type.String()), size: uint32(len(r.Payload))}
		values, err := r.Registers()
		if err != nil {
			continue
		}
		for j, v := range values {
			registers = append(registers, RegisterHDF5{frame: frame, index: uint32(j), value: v})
		}
	}
	if err := appendRows(w, "Debug", "frames", frames); err != nil {
		return err
	}
	return appendRows(w, "Debug", "registers", registers)
}

// Columns lists the compound member names hdf5 derives from a row struct:
// the raw field tag when there is one, the field name otherwise.
func Columns(record interface{}) []string {
	t := reflect.TypeOf(record)
	if t.Kind() != reflect.Struct {
		return nil
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := string(f.Tag)
		if name == "" {
			name = f.Name
		}
		names = append(names, name)
	}
	return names
}

func (w *Writer) Close() error {
	if decoder.GetVerbosity() > 0 {
		decoder.GetLogger().Info("Closing file "+w.Filename, "hdf5writer")
	}
	var errs []error
	for _, key := range w.order {
		if err := w.datasets[key].Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", key, err))
		}
	}
	for name, g := range w.groups {
		if err := g.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing group %s: %w", name, err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	return errors.Join(errs...)
}
