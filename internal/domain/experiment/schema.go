// Package experiment defines the fixed experimental-parameter schema of the
// photocatalysis model: catalyst mass, co-catalyst loading and the one-hot
// co-catalyst and sacrificial electron donor (SED) columns.
package experiment

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

const (
	ColumnCatalystMg   = "Cat_mg"
	ColumnCoCatalystWt = "CoCat_wt%"

	coCatalystPrefix = "CoCat_"
	sedPrefix        = "SED_"

	// MinValue and MaxValue bound both numeric parameters.
	MinValue = 0.0
	MaxValue = 50.0
	// DefaultValue is the initial slider position for both numeric
	// parameters.
	DefaultValue = 3.0
)

// Option is one categorical choice. Column is the model column name; Label is
// what a person sees.
type Option struct {
	Column string `json:"column"`
	Label  string `json:"label"`
}

func newOption(prefix, column string) Option {
	label := strings.TrimPrefix(column, prefix)
	label = strings.TrimSpace(strings.ReplaceAll(label, "\n", ""))
	return Option{Column: column, Label: label}
}

// CoCatalysts lists the co-catalyst one-hot columns in model order. The first
// column name carries a newline; the model was fit with it.
var CoCatalysts = lo.Map([]string{
	"CoCat_\nRu(bpy)3Cl2",
	"CoCat_Co(NO3)2",
	"CoCat_Cu3(HHTP)2",
	"CoCat_H2PtCl6",
	"CoCat_HAuCl4",
	"CoCat_Ni(OAc)",
	"CoCat_Ni(OH)2",
	"CoCat_Non",
	"CoCat_PVP-Pt",
	"CoCat_Pt",
	"CoCat_none",
}, func(c string, _ int) Option { return newOption(coCatalystPrefix, c) })

// SEDs lists the sacrificial electron donor one-hot columns in model order.
var SEDs = lo.Map([]string{
	"SED_AA",
	"SED_L-Ascorbic",
	"SED_L-Cystein",
	"SED_MeOH",
	"SED_Na2S-Na2SO3",
	"SED_SA",
	"SED_TEA",
	"SED_TEOA",
	"SED_VC",
	"SED_none",
}, func(c string, _ int) Option { return newOption(sedPrefix, c) })

// Columns returns the full parameter schema in model order.
func Columns() []string {
	cols := []string{ColumnCatalystMg, ColumnCoCatalystWt}
	cols = append(cols, lo.Map(CoCatalysts, func(o Option, _ int) string { return o.Column })...)
	cols = append(cols, lo.Map(SEDs, func(o Option, _ int) string { return o.Column })...)
	return cols
}

// Width is the number of parameter columns.
func Width() int { return 2 + len(CoCatalysts) + len(SEDs) }

// LookupCoCatalyst resolves a co-catalyst by column name or label.
func LookupCoCatalyst(s string) (Option, bool) {
	return lookup(CoCatalysts, coCatalystPrefix, s)
}

// LookupSED resolves an electron donor by column name or label.
func LookupSED(s string) (Option, bool) {
	return lookup(SEDs, sedPrefix, s)
}

func lookup(options []Option, prefix, s string) (Option, bool) {
	if s == "" {
		return Option{}, false
	}
	if i := slices.IndexFunc(options, func(o Option) bool { return o.Column == s }); i >= 0 {
		return options[i], true
	}
	want := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(s, prefix), "\n", ""))
	return lo.Find(options, func(o Option) bool { return o.Label == want })
}
