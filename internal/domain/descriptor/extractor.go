// Package descriptor turns a SMILES string into the model's descriptor row:
// the selected Morgan fingerprint bits followed by eleven 3-D shape
// descriptors of a force-field optimised conformer.
package descriptor

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/conformer"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/molecule"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Extractor is the seam the application layer depends on.
type Extractor interface {
	// Extract returns a one-row descriptor table. A SMILES that does not
	// parse yields an empty table and a nil error.
	Extract(ctx context.Context, smiles string) (*frame.Table, error)
	// Columns lists the descriptor columns in row order.
	Columns() []string
}

// Config parameterises the extractor.
type Config struct {
	Radius    int
	NBits     int
	Profile   *ColumnProfile
	Conformer conformer.Options
	// Timeout bounds one extraction; zero means no bound.
	Timeout time.Duration
}

// Seed returns the conformer seed; zero means random per call.
func (c Config) Seed() int64 { return c.Conformer.Seed }

// Calculator is the default Extractor.
type Calculator struct {
	cfg     Config
	columns []string
	logger  logging.Logger
}

// NewCalculator validates cfg against its column profile.
func NewCalculator(cfg Config, logger logging.Logger) (*Calculator, error) {
	if cfg.Profile == nil {
		p, err := LoadProfile(DefaultProfile)
		if err != nil {
			return nil, err
		}
		cfg.Profile = p
	}
	if cfg.NBits == 0 {
		cfg.NBits = cfg.Profile.Fingerprint.NBits
	}
	if cfg.Radius == 0 {
		cfg.Radius = cfg.Profile.Fingerprint.Radius
	}
	if cfg.NBits != cfg.Profile.Fingerprint.NBits {
		return nil, errors.Newf(errors.ErrCodeColumnProfileInvalid,
			"profile %q was selected from %d-bit fingerprints, extractor is configured for %d",
			cfg.Profile.Name, cfg.Profile.Fingerprint.NBits, cfg.NBits)
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Calculator{
		cfg:     cfg,
		columns: append(cfg.Profile.Columns(), ShapeNames...),
		logger:  logger.Named("descriptor"),
	}, nil
}

// Columns implements Extractor.
func (c *Calculator) Columns() []string { return c.columns }

// Config returns the effective configuration.
func (c *Calculator) Config() Config { return c.cfg }

// Extract implements Extractor.
func (c *Calculator) Extract(ctx context.Context, smiles string) (*frame.Table, error) {
	res, err := c.Calculate(ctx, smiles)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return frame.Empty(), nil
	}
	return res.Table, nil
}

// Result carries the intermediate products of one extraction.
type Result struct {
	Table       *frame.Table
	Formula     string
	Fingerprint *molecule.Fingerprint
	Shape       Shape
	Conformer   *conformer.Conformer
}

// Calculate runs the full pipeline. It returns (nil, nil) when smiles does
// not parse.
func (c *Calculator) Calculate(ctx context.Context, smiles string) (*Result, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, nil
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	mol, err := molecule.ParseSMILES(smiles)
	if err != nil {
		c.logger.Debug("smiles rejected", logging.String("smiles", smiles), logging.Err(err))
		return nil, nil
	}

	fp, err := molecule.MorganFingerprint(mol, c.cfg.Radius, c.cfg.NBits)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDescriptorCalculationFailed, "fingerprint")
	}

	withH := mol.AddHydrogens()
	start := time.Now()
	conf, err := conformer.Generate(ctx, withH, c.cfg.Conformer)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("conformer generated",
		logging.String("smiles", smiles),
		logging.Int("atoms", withH.NumAtoms()),
		logging.Int("attempts", conf.Attempts),
		logging.Float64("energy", conf.Energy),
		logging.Duration("elapsed", time.Since(start)))

	masses := make([]float64, withH.NumAtoms())
	for i := range withH.Atoms {
		masses[i] = withH.Atoms[i].Mass()
	}
	shape, err := ComputeShape(conf.Positions, masses)
	if err != nil {
		return nil, err
	}

	row := append(fp.Select(c.cfg.Profile.Bits), shape.Values()...)
	tbl, err := frame.New(c.columns, row)
	if err != nil {
		return nil, err
	}
	return &Result{
		Table:       tbl,
		Formula:     mol.Formula(),
		Fingerprint: fp,
		Shape:       shape,
		Conformer:   conf,
	}, nil
}
