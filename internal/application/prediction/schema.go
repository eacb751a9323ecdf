package prediction

import (
	"time"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/descriptor"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/intelligence/cof_ann"
)

// Bounds describes one numeric form field.
type Bounds struct {
	Column  string  `json:"column"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// ModelInfo describes the loaded bundle.
type ModelInfo struct {
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	Unit           string    `json:"unit"`
	InputWidth     int       `json:"input_width"`
	OutputWidth    int       `json:"output_width"`
	FeatureColumns []string  `json:"feature_columns,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// Schema is everything a client needs to build a prediction request.
type Schema struct {
	ParameterColumns  []string            `json:"parameter_columns"`
	DescriptorColumns []string            `json:"descriptor_columns"`
	ShapeColumns      []string            `json:"shape_columns"`
	CoCatalysts       []experiment.Option `json:"cocatalysts"`
	SEDs              []experiment.Option `json:"seds"`
	Numeric           []Bounds            `json:"numeric"`
	Unit              string              `json:"unit"`
	Model             *ModelInfo          `json:"model,omitempty"`
}

// NewSchema describes the fixed parameter schema and the given descriptor
// columns.
func NewSchema(descriptorColumns []string) *Schema {
	return &Schema{
		ParameterColumns:  experiment.Columns(),
		DescriptorColumns: descriptorColumns,
		ShapeColumns:      descriptor.ShapeNames,
		CoCatalysts:       experiment.CoCatalysts,
		SEDs:              experiment.SEDs,
		Numeric: []Bounds{
			{
				Column:  experiment.ColumnCatalystMg,
				Label:   "Cat_ weight (mg)",
				Min:     experiment.MinValue,
				Max:     experiment.MaxValue,
				Default: experiment.DefaultValue,
			},
			{
				Column:  experiment.ColumnCoCatalystWt,
				Label:   "CoCat_wt%",
				Min:     experiment.MinValue,
				Max:     experiment.MaxValue,
				Default: experiment.DefaultValue,
			},
		},
		Unit: cof_ann.DefaultUnit,
	}
}

// InputWidth is the width of the assembled model input.
func (s *Schema) InputWidth() int {
	return len(s.ParameterColumns) + len(s.DescriptorColumns)
}
