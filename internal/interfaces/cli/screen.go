package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/bootstrap"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// NewScreenCmd predicts every SMILES of a file under one set of conditions
// and ranks the candidates.
func NewScreenCmd() *cobra.Command {
	params := defaultCLIParams()

	cmd := &cobra.Command{
		Use:   "screen <file|->",
		Short: "Rank many COF candidates by predicted H2 evolution rate",
		Long: "screen reads one SMILES per line (blank lines and lines starting with # are\n" +
			"skipped, text after the first whitespace is ignored), predicts each under the\n" +
			"same experimental conditions and prints them ranked, best first. Candidates\n" +
			"that fail are listed after the ranked ones.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := params.Validate(); err != nil {
				return err
			}
			smiles, err := readCandidates(cmd, args[0])
			if err != nil {
				return err
			}
			if len(smiles) == 0 {
				return errors.Newf(errors.CodeInvalidParam, "no SMILES found in %s", args[0])
			}
			inputs := make([]prediction.PredictInput, len(smiles))
			for i, s := range smiles {
				inputs[i] = prediction.PredictInput{SMILES: s, Params: params}
			}
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if app.Screener == nil {
					return errors.Internal("screener is not configured")
				}
				report, err := app.Screener.Screen(ctx, inputs)
				if err != nil {
					return err
				}
				return PrintResult(cmd, screenView{report})
			})
		},
	}
	addParamFlags(cmd, &params)
	return cmd
}

func readCandidates(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidParam, "failed to open %s", path)
		}
		defer f.Close()
		r = f
	}

	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.Fields(line)[0])
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidParam, "failed to read %s", path)
	}
	return out, nil
}

type screenView struct {
	*prediction.ScreenReport
}

func (v screenView) TableHeaders() []string {
	return []string{"RANK", "#", "SMILES", "PREDICTION", "STATUS"}
}

func (v screenView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Items))
	for rank, it := range v.Ranked() {
		rows = append(rows, []string{
			strconv.Itoa(rank + 1),
			strconv.Itoa(it.Index + 1),
			it.SMILES,
			formatFloat(it.Result.Value()) + " " + it.Result.Unit,
			it.Status.String(),
		})
	}
	for _, it := range v.Items {
		if it.Result != nil {
			continue
		}
		msg := it.Status.String()
		if it.Err != nil {
			msg += ": " + it.Err.Error()
		}
		rows = append(rows, []string{"-", strconv.Itoa(it.Index + 1), it.SMILES, "-", msg})
	}
	return rows
}

//Personal.AI order the ending
