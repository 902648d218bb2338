package decoder

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FieldSummary holds the spread of one health quantity, in physical units,
// over a run of health packets.
type FieldSummary struct {
	Field string
	Mean  float64
	Min   float64
	Max   float64
}

type healthField struct {
	name  string
	value func(HealthRecord) float64
}

func hafxFields(ch Channel) []healthField {
	prefix := ch.String() + "_"
	get := func(f func(HafxHealth) float64) func(HealthRecord) float64 {
		return func(h HealthRecord) float64 { return f(h.Hafx(ch)) }
	}
	return []healthField{
		{prefix + "arm_temp", get(HafxHealth.ArmTempK)},
		{prefix + "sipm_temp", get(HafxHealth.SipmTempK)},
		{prefix + "sipm_operating_voltage", get(HafxHealth.SipmOperatingVoltageV)},
		{prefix + "sipm_target_voltage", get(HafxHealth.SipmTargetVoltageV)},
		{prefix + "counts", get(func(h HafxHealth) float64 { return float64(h.Counts) })},
		{prefix + "dead_time", get(func(h HafxHealth) float64 { return float64(h.DeadTimeNs()) })},
		{prefix + "real_time", get(func(h HafxHealth) float64 { return float64(h.RealTimeNs()) })},
	}
}

var x123Fields = []healthField{
	{"x123_board_temp", func(h HealthRecord) float64 { return h.X123.BoardTempK() }},
	{"x123_det_high_voltage", func(h HealthRecord) float64 { return h.X123.DetHighVoltageV() }},
	{"x123_det_temp", func(h HealthRecord) float64 { return h.X123.DetTempK() }},
	{"x123_fast_counts", func(h HealthRecord) float64 { return float64(h.X123.FastCounts) }},
	{"x123_slow_counts", func(h HealthRecord) float64 { return float64(h.X123.SlowCounts) }},
	{"x123_accumulation_time", func(h HealthRecord) float64 { return float64(h.X123.AccumulationTime) }},
	{"x123_real_time", func(h HealthRecord) float64 { return float64(h.X123.RealTime) }},
}

func healthFields() []healthField {
	fields := make([]healthField, 0, 4*7+len(x123Fields))
	for _, ch := range []Channel{C1, M1, M5, X1} {
		fields = append(fields, hafxFields(ch)...)
	}
	return append(fields, x123Fields...)
}

// SummarizeHealth computes mean, minimum and maximum of every health field,
// HaFX channels first in c1, m1, m5, x1 order and the X-123 last.
func SummarizeHealth(records []HealthRecord) ([]FieldSummary, error) {
	if len(records) == 0 {
		return nil, &PreconditionError{Op: "SummarizeHealth", Reason: "no health records"}
	}

	fields := healthFields()
	summary := make([]FieldSummary, len(fields))
	values := make([]float64, len(records))
	for i, field := range fields {
		for j, record := range records {
			values[j] = field.value(record)
		}
		summary[i] = FieldSummary{
			Field: field.name,
			Mean:  stat.Mean(values, nil),
			Min:   floats.Min(values),
			Max:   floats.Max(values),
		}
	}
	if verbosity > 0 {
		message := fmt.Sprintf("Summarized %d health fields over %d packets", len(summary), len(records))
		logger.Info(message, "health")
	}
	return summary, nil
}
