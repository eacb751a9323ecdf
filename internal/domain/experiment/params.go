package experiment

import (
	"fmt"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Params are the experimental conditions of one prediction.
type Params struct {
	CatalystMg   float64 `json:"cat_mg"`
	CoCatalystWt float64 `json:"cocat_wt"`
	CoCatalyst   string  `json:"cocat"`
	SED          string  `json:"sed"`
}

// DefaultParams mirrors the form's initial state.
func DefaultParams() Params {
	return Params{
		CatalystMg:   DefaultValue,
		CoCatalystWt: DefaultValue,
		CoCatalyst:   CoCatalysts[0].Column,
		SED:          SEDs[0].Column,
	}
}

// Validate checks ranges and resolves the choices.
func (p Params) Validate() error {
	if !(p.CatalystMg >= MinValue && p.CatalystMg <= MaxValue) {
		return errors.Newf(errors.CodeInvalidParam, "Cat_ weight (mg) must be within [%g, %g], got %g",
			MinValue, MaxValue, p.CatalystMg)
	}
	if !(p.CoCatalystWt >= MinValue && p.CoCatalystWt <= MaxValue) {
		return errors.Newf(errors.CodeInvalidParam, "CoCat_wt%% must be within [%g, %g], got %g",
			MinValue, MaxValue, p.CoCatalystWt)
	}
	if _, ok := LookupCoCatalyst(p.CoCatalyst); !ok {
		return errors.Newf(errors.CodeInvalidParam, "unknown co-catalyst %q", p.CoCatalyst)
	}
	if _, ok := LookupSED(p.SED); !ok {
		return errors.Newf(errors.CodeInvalidParam, "unknown electron donor %q", p.SED)
	}
	return nil
}

// Values returns the parameter row: a fresh zero row with the two numeric
// columns and exactly one co-catalyst and one SED column set.
func (p Params) Values() ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cocat, _ := LookupCoCatalyst(p.CoCatalyst)
	sed, _ := LookupSED(p.SED)

	cols := Columns()
	row := make([]float64, len(cols))
	for i, c := range cols {
		switch c {
		case ColumnCatalystMg:
			row[i] = p.CatalystMg
		case ColumnCoCatalystWt:
			row[i] = p.CoCatalystWt
		case cocat.Column, sed.Column:
			row[i] = 1
		}
	}
	return row, nil
}

// Row returns the parameter row as a one-row table.
func (p Params) Row() (*frame.Table, error) {
	values, err := p.Values()
	if err != nil {
		return nil, err
	}
	return frame.New(Columns(), values)
}

// Normalized returns p with both choices rewritten to their column names.
func (p Params) Normalized() Params {
	if o, ok := LookupCoCatalyst(p.CoCatalyst); ok {
		p.CoCatalyst = o.Column
	}
	if o, ok := LookupSED(p.SED); ok {
		p.SED = o.Column
	}
	return p
}

// Summary lists the inputs in the order the confirmation block shows them.
func (p Params) Summary() [][2]string {
	cocat, sed := p.CoCatalyst, p.SED
	if o, ok := LookupCoCatalyst(cocat); ok {
		cocat = o.Label
	}
	if o, ok := LookupSED(sed); ok {
		sed = o.Label
	}
	return [][2]string{
		{"CoCatalyst", cocat},
		{"SED", sed},
		{"Cat_mg", fmt.Sprintf("%g", p.CatalystMg)},
		{"CoCat_wt%", fmt.Sprintf("%g", p.CoCatalystWt)},
	}
}
