// Package prediction defines the JSON request and response bodies of the
// COF-H2 predictor API. Only plain data types live here so that the server
// and pkg/client share one wire format.
package prediction

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Shared shapes
// ─────────────────────────────────────────────────────────────────────────────

// Table is a column-named numeric table.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return t == nil || len(t.Rows) == 0 }

// Parameters are the experimental conditions. CoCatalyst and SED accept
// either the model column name ("CoCat_Pt") or its label ("Pt").
type Parameters struct {
	CatalystMg   float64 `json:"cat_mg"`
	CoCatalystWt float64 `json:"cocat_wt"`
	CoCatalyst   string  `json:"cocat"`
	SED          string  `json:"sed"`
}

// Option is one categorical choice.
type Option struct {
	Column string `json:"column"`
	Label  string `json:"label"`
}

// NumericField describes a bounded numeric parameter.
type NumericField struct {
	Column  string  `json:"column"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// ModelInfo describes the loaded model.
type ModelInfo struct {
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	Unit           string    `json:"unit,omitempty"`
	InputWidth     int       `json:"input_width,omitempty"`
	OutputWidth    int       `json:"output_width,omitempty"`
	FeatureColumns []string  `json:"feature_columns,omitempty"`
	LoadedAt       time.Time `json:"loaded_at,omitempty"`
}

// Timings are reported in milliseconds.
type Timings struct {
	DescriptorsMs float64 `json:"descriptors_ms"`
	InferenceMs   float64 `json:"inference_ms"`
	TotalMs       float64 `json:"total_ms"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Requests
// ─────────────────────────────────────────────────────────────────────────────

// DescriptorsRequest is the body of POST /api/v1/descriptors.
type DescriptorsRequest struct {
	SMILES string `json:"smiles"`
}

// PredictionRequest is the body of POST /api/v1/predictions. Parameters
// default to the form defaults when omitted. Descriptors, when present, are
// used instead of recomputing them.
type PredictionRequest struct {
	SMILES      string      `json:"smiles"`
	Parameters  *Parameters `json:"parameters,omitempty"`
	Descriptors *Table      `json:"descriptors,omitempty"`
}

// BatchPredictionRequest is the body of POST /api/v1/predictions/batch.
// Parameters apply to every candidate.
type BatchPredictionRequest struct {
	SMILES     []string    `json:"smiles"`
	Parameters *Parameters `json:"parameters,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Responses
// ─────────────────────────────────────────────────────────────────────────────

// DescriptorsResponse carries the descriptor row. Valid is false and the
// table empty when the SMILES could not be parsed.
type DescriptorsResponse struct {
	SMILES      string  `json:"smiles"`
	Formula     string  `json:"formula,omitempty"`
	Valid       bool    `json:"valid"`
	Descriptors Table   `json:"descriptors"`
	ElapsedMs   float64 `json:"elapsed_ms"`
}

// PredictionResponse is one completed prediction.
type PredictionResponse struct {
	ID           string     `json:"id"`
	SMILES       string     `json:"smiles"`
	Formula      string     `json:"formula,omitempty"`
	Parameters   Parameters `json:"parameters"`
	Descriptors  Table      `json:"descriptors"`
	ParameterRow Table      `json:"parameter_row"`
	Input        Table      `json:"input"`
	Predictions  []float64  `json:"predictions"`
	Value        float64    `json:"value"`
	Unit         string     `json:"unit"`
	Model        ModelInfo  `json:"model"`
	Timings      Timings    `json:"timings"`
	CreatedAt    time.Time  `json:"created_at"`
}

// BatchItem is one screened candidate. Prediction is set on success and
// Error otherwise.
type BatchItem struct {
	Index      int                 `json:"index"`
	SMILES     string              `json:"smiles"`
	Status     string              `json:"status"`
	Prediction *PredictionResponse `json:"prediction,omitempty"`
	Error      *ErrorResponse      `json:"error,omitempty"`
	Attempts   int                 `json:"attempts"`
	DurationMs float64             `json:"duration_ms"`
}

// BatchPredictionResponse lists candidates in request order. Ranking holds
// the indices of the successful ones, highest rate first; Best is -1 when
// none succeeded.
type BatchPredictionResponse struct {
	Items     []BatchItem `json:"items"`
	Ranking   []int       `json:"ranking"`
	Best      int         `json:"best"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	ElapsedMs float64     `json:"elapsed_ms"`
}

// SchemaResponse lists everything needed to build a request.
type SchemaResponse struct {
	ParameterColumns  []string       `json:"parameter_columns"`
	DescriptorColumns []string       `json:"descriptor_columns"`
	ShapeColumns      []string       `json:"shape_columns"`
	CoCatalysts       []Option       `json:"cocatalysts"`
	SEDs              []Option       `json:"seds"`
	Numeric           []NumericField `json:"numeric"`
	InputWidth        int            `json:"input_width"`
	Unit              string         `json:"unit"`
	Model             *ModelInfo     `json:"model,omitempty"`
}

// HistoryRecord is a stored prediction.
type HistoryRecord struct {
	ID          string     `json:"id"`
	SMILES      string     `json:"smiles"`
	Formula     string     `json:"formula,omitempty"`
	Parameters  Parameters `json:"parameters"`
	Predictions []float64  `json:"predictions"`
	Unit        string     `json:"unit"`
	Model       ModelInfo  `json:"model"`
	Seed        int64      `json:"seed"`
	DurationMs  float64    `json:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HistoryResponse is the body of GET /api/v1/predictions.
type HistoryResponse struct {
	Items []HistoryRecord `json:"items"`
	Count int             `json:"count"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

//Personal.AI order the ending
