package semantic

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// rawModel mirrors the tenant configuration artifact. Dimensions accept
// either a plain column name or an object with column/table; date ranges
// accept a day count or the calendar_month marker.
type rawModel struct {
	Tenant     string            `mapstructure:"tenant"`
	FactTable  string            `mapstructure:"fact_table"`
	DateColumn string            `mapstructure:"date_column"`
	Metrics    map[string]string `mapstructure:"metrics"`
	Dimensions map[string]any    `mapstructure:"dimensions"`
	DateRanges map[string]any    `mapstructure:"date_ranges"`
}

// Load reads a tenant semantic model from a JSON or YAML configuration
// file. The compiler never reads files itself; this loader is invoked by
// the wiring layer at startup.
func Load(path string) (*Model, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read semantic model %s: %w", path, err)
	}

	var raw rawModel
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("decode semantic model %s: %w", path, err)
	}
	return fromRaw(raw)
}

func fromRaw(raw rawModel) (*Model, error) {
	if raw.FactTable == "" {
		return nil, fmt.Errorf("semantic model missing fact_table")
	}
	if raw.DateColumn == "" {
		return nil, fmt.Errorf("semantic model missing date_column")
	}
	if len(raw.Metrics) == 0 {
		return nil, fmt.Errorf("semantic model defines no metrics")
	}

	model := &Model{
		Tenant:     raw.Tenant,
		FactTable:  raw.FactTable,
		DateColumn: raw.DateColumn,
		Metrics:    make(map[string]MetricSpec, len(raw.Metrics)),
		Dimensions: make(map[string]DimensionSpec, len(raw.Dimensions)),
		DateRanges: make(map[string]DateRange, len(raw.DateRanges)),
	}

	for name, expr := range raw.Metrics {
		spec, err := ClassifyExpression(name, expr)
		if err != nil {
			return nil, err
		}
		model.Metrics[name] = spec
	}

	for name, value := range raw.Dimensions {
		spec, err := decodeDimension(name, value)
		if err != nil {
			return nil, err
		}
		model.Dimensions[name] = spec
	}

	for name, value := range raw.DateRanges {
		dr, err := decodeDateRange(name, value)
		if err != nil {
			return nil, err
		}
		model.DateRanges[name] = dr
	}

	return model, nil
}

func decodeDimension(name string, value any) (DimensionSpec, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return DimensionSpec{}, fmt.Errorf("dimension %q maps to an empty column", name)
		}
		return DimensionSpec{Name: name, Column: v}, nil
	case map[string]any:
		var spec struct {
			Column string `mapstructure:"column"`
			Table  string `mapstructure:"table"`
		}
		if err := mapstructure.Decode(v, &spec); err != nil {
			return DimensionSpec{}, fmt.Errorf("dimension %q: %w", name, err)
		}
		if spec.Column == "" {
			return DimensionSpec{}, fmt.Errorf("dimension %q missing column", name)
		}
		return DimensionSpec{Name: name, Column: spec.Column, Table: spec.Table}, nil
	default:
		return DimensionSpec{}, fmt.Errorf("dimension %q has unsupported mapping %T", name, value)
	}
}

func decodeDateRange(name string, value any) (DateRange, error) {
	switch v := value.(type) {
	case int:
		return dayRange(name, v)
	case int64:
		return dayRange(name, int(v))
	case float64:
		return dayRange(name, int(v))
	case string:
		if strings.EqualFold(v, "calendar_month") {
			return DateRange{Calendar: true}, nil
		}
		return DateRange{}, fmt.Errorf("date range %q has unsupported marker %q", name, v)
	default:
		return DateRange{}, fmt.Errorf("date range %q has unsupported value %T", name, value)
	}
}

func dayRange(name string, days int) (DateRange, error) {
	if days <= 0 {
		return DateRange{}, fmt.Errorf("date range %q must span at least one day", name)
	}
	return DateRange{Days: days}, nil
}
