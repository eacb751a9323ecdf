package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/bootstrap"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// withService runs fn against an offline predictor bounded by --timeout.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc prediction.Service) error) error {
	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		return fn(ctx, app.Service)
	})
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	app, err := cliCtx.NewApp(ctx, bootstrap.Options{Offline: true})
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

// NewDescriptorsCmd computes the descriptor row of one SMILES string.
func NewDescriptorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "descriptors <smiles>",
		Short: "Compute the descriptor row of a SMILES string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc prediction.Service) error {
				res, err := svc.Descriptors(ctx, args[0])
				if err != nil {
					return err
				}
				if !res.Valid {
					return errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "could not compute descriptors for %q", res.SMILES)
				}
				return PrintResult(cmd, descriptorsView{res})
			})
		},
	}
}

// NewPredictCmd runs the full pipeline for one SMILES string and one set of
// experimental conditions.
func NewPredictCmd() *cobra.Command {
	params := defaultCLIParams()

	cmd := &cobra.Command{
		Use:   "predict <smiles>",
		Short: "Predict the H2 evolution rate of a COF",
		Long: "predict computes the descriptors of the SMILES string, appends the encoded\n" +
			"experimental conditions and runs the ANN. Co-catalysts and electron donors\n" +
			"are given by label (Pt, TEOA) or by column name (CoCat_Pt, SED_TEOA).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := params.Validate(); err != nil {
				return err
			}
			return withService(cmd, func(ctx context.Context, svc prediction.Service) error {
				res, err := svc.Predict(ctx, &prediction.PredictInput{SMILES: args[0], Params: params})
				if err != nil {
					return err
				}
				return PrintResult(cmd, predictView{res})
			})
		},
	}

	addParamFlags(cmd, &params)
	return cmd
}

// defaultCLIParams are the form defaults with the first choice of each list
// preselected.
func defaultCLIParams() experiment.Params {
	params := experiment.DefaultParams()
	params.CoCatalyst = experiment.CoCatalysts[0].Label
	params.SED = experiment.SEDs[0].Label
	return params
}

func addParamFlags(cmd *cobra.Command, params *experiment.Params) {
	f := cmd.Flags()
	f.StringVar(&params.CoCatalyst, "cocat", params.CoCatalyst, "co-catalyst label or column")
	f.StringVar(&params.SED, "sed", params.SED, "sacrificial electron donor label or column")
	f.Float64Var(&params.CatalystMg, "cat-mg", params.CatalystMg,
		fmt.Sprintf("catalyst mass in mg [%g, %g]", experiment.MinValue, experiment.MaxValue))
	f.Float64Var(&params.CoCatalystWt, "cocat-wt", params.CoCatalystWt,
		fmt.Sprintf("co-catalyst loading in wt%% [%g, %g]", experiment.MinValue, experiment.MaxValue))
}

// NewSchemaCmd prints the input schema and the loaded model.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the model input columns and the accepted choices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc prediction.Service) error {
				return PrintResult(cmd, schemaView{svc.Schema(ctx)})
			})
		},
	}
}

type descriptorsView struct {
	*prediction.DescriptorsResult
}

func (v descriptorsView) TableHeaders() []string { return []string{"DESCRIPTOR", "VALUE"} }

func (v descriptorsView) TableRows() [][]string {
	return columnRows(v.Table)
}

type predictView struct {
	*prediction.PredictResult
}

func (v predictView) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (v predictView) TableRows() [][]string {
	rows := [][]string{{"SMILES", v.SMILES}}
	if v.Formula != "" {
		rows = append(rows, []string{"Formula", v.Formula})
	}
	for _, kv := range v.Params.Summary() {
		rows = append(rows, []string{kv[0], kv[1]})
	}
	rows = append(rows, columnRows(v.Descriptors)...)
	rows = append(rows,
		[]string{"Model", v.ModelName + " " + v.ModelVersion},
		[]string{"Prediction", formatFloat(v.Value()) + " " + v.Unit},
	)
	return rows
}

type schemaView struct {
	*prediction.Schema
}

func (v schemaView) TableHeaders() []string { return []string{"#", "COLUMN", "KIND"} }

func (v schemaView) TableRows() [][]string {
	var rows [][]string
	add := func(kind string, cols []string) {
		for _, c := range cols {
			rows = append(rows, []string{strconv.Itoa(len(rows) + 1), strconv.Quote(c), kind})
		}
	}
	add("descriptor", v.DescriptorColumns)
	add("parameter", v.ParameterColumns)
	return rows
}

// columnRows turns the first row of a one-row table into name/value pairs.
func columnRows(t *frame.Table) [][]string {
	if t == nil || t.IsEmpty() {
		return nil
	}
	row := t.Row(0)
	rows := make([][]string, 0, len(t.Columns))
	for i, c := range t.Columns {
		rows = append(rows, []string{c, formatFloat(row[i])})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

//Personal.AI order the ending
