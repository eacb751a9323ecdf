package descriptor

import (
	"embed"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

//go:embed columns/*.yaml
var profileFS embed.FS

// DefaultProfile is the column profile used when none is configured.
const DefaultProfile = "ann-best-7"

// FingerprintSpec is the fingerprint geometry a profile was selected from.
type FingerprintSpec struct {
	Radius int `yaml:"radius" json:"radius"`
	NBits  int `yaml:"n_bits" json:"n_bits"`
}

// ColumnProfile is the allow-list of fingerprint bits kept in the
// descriptor row, in model input order.
type ColumnProfile struct {
	Name        string          `yaml:"profile" json:"profile"`
	Fingerprint FingerprintSpec `yaml:"fingerprint" json:"fingerprint"`
	Bits        []int           `yaml:"bits" json:"bits"`
}

// Columns names the fingerprint columns by bit index.
func (p *ColumnProfile) Columns() []string {
	return lo.Map(p.Bits, func(b int, _ int) string { return strconv.Itoa(b) })
}

// Validate checks that every bit is inside the fingerprint and that no bit
// repeats.
func (p *ColumnProfile) Validate() error {
	if p.Fingerprint.NBits <= 0 {
		return errors.Newf(errors.ErrCodeColumnProfileInvalid, "profile %q: n_bits must be > 0", p.Name)
	}
	if p.Fingerprint.Radius < 0 {
		return errors.Newf(errors.ErrCodeColumnProfileInvalid, "profile %q: radius must be ≥ 0", p.Name)
	}
	if len(p.Bits) == 0 {
		return errors.Newf(errors.ErrCodeColumnProfileInvalid, "profile %q: no bits selected", p.Name)
	}
	for _, b := range p.Bits {
		if b < 0 || b >= p.Fingerprint.NBits {
			return errors.Newf(errors.ErrCodeColumnProfileInvalid,
				"profile %q: bit %d outside [0,%d)", p.Name, b, p.Fingerprint.NBits)
		}
	}
	if dup := lo.FindDuplicates(p.Bits); len(dup) > 0 {
		return errors.Newf(errors.ErrCodeColumnProfileInvalid, "profile %q: duplicate bits %v", p.Name, dup)
	}
	return nil
}

// ProfileNames lists the embedded profiles.
func ProfileNames() []string {
	entries, err := profileFS.ReadDir("columns")
	if err != nil {
		return nil
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return strings.TrimSuffix(e.Name(), ".yaml"), strings.HasSuffix(e.Name(), ".yaml")
	})
	slices.Sort(names)
	return names
}

// LoadProfile returns an embedded profile by name.
func LoadProfile(name string) (*ColumnProfile, error) {
	if name == "" {
		name = DefaultProfile
	}
	data, err := profileFS.ReadFile(path.Join("columns", name+".yaml"))
	if err != nil {
		return nil, errors.Newf(errors.ErrCodeColumnProfileInvalid,
			"unknown column profile %q (have %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return parseProfile(data, name)
}

// LoadProfileFile reads a profile from a YAML file.
func LoadProfileFile(file string) (*ColumnProfile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeColumnProfileInvalid, "read column profile %s", file)
	}
	return parseProfile(data, file)
}

// ResolveProfile picks the file when set, else the named embedded profile.
func ResolveProfile(name, file string) (*ColumnProfile, error) {
	if file != "" {
		return LoadProfileFile(file)
	}
	return LoadProfile(name)
}

// ProfileFromColumns builds a profile from fingerprint column names such as a
// model manifest's feature list. Non-numeric names are skipped.
func ProfileFromColumns(name string, columns []string, fp FingerprintSpec) (*ColumnProfile, error) {
	bits := lo.FilterMap(columns, func(c string, _ int) (int, bool) {
		b, err := strconv.Atoi(c)
		return b, err == nil
	})
	p := &ColumnProfile{Name: name, Fingerprint: fp, Bits: bits}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseProfile(data []byte, source string) (*ColumnProfile, error) {
	var p ColumnProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeColumnProfileInvalid, "parse column profile %s", source)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(path.Base(source), ".yaml")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
