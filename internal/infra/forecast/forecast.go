// Package forecast is a table-driven reference forecaster. It projects
// milestones from per-species day offsets and emits them under the alias
// keys the expected-date resolver understands.
package forecast

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"breedcore/internal/dates"
	"breedcore/pkg/domain"
)

//go:embed species.yaml
var defaultTable []byte

// DefaultProjectionCount is how many future cycle starts ProjectCycles emits.
const DefaultProjectionCount = 4

var (
	// ErrUnknownSpecies is returned for a species missing from the table.
	ErrUnknownSpecies = errors.New("forecast: unknown species")
	// ErrNoHistory is returned when a projection has no recorded cycle start.
	ErrNoHistory = errors.New("forecast: no cycle history")
)

// Profile holds the day offsets for one species. Milestone offsets are
// relative to the cycle start except weaning and placement, which follow
// birth. Zero placement values are left for the resolver to synthesize.
type Profile struct {
	CycleIntervalDays   int `yaml:"cycle_interval_days"`
	TestingOffsetDays   int `yaml:"testing_offset_days"`
	OvulationOffsetDays int `yaml:"ovulation_offset_days"`
	GestationDays       int `yaml:"gestation_days"`
	WeaningDays         int `yaml:"weaning_days"`
	PlacementStartDays  int `yaml:"placement_start_days,omitempty"`
	PlacementWindowDays int `yaml:"placement_window_days,omitempty"`
}

func (p Profile) validate(name string) error {
	if p.CycleIntervalDays <= 0 {
		return fmt.Errorf("species %s: cycle_interval_days must be positive", name)
	}
	if p.OvulationOffsetDays < 0 || p.GestationDays <= 0 {
		return fmt.Errorf("species %s: ovulation and gestation offsets are required", name)
	}
	return nil
}

type table struct {
	Species map[string]Profile `yaml:"species"`
}

// Forecaster projects milestones from a species table.
type Forecaster struct {
	profiles map[string]Profile
	count    int
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithProjectionCount overrides how many candidates ProjectCycles returns.
func WithProjectionCount(n int) Option {
	return func(f *Forecaster) {
		if n > 0 {
			f.count = n
		}
	}
}

// New builds a forecaster from the embedded reference table.
func New(opts ...Option) (*Forecaster, error) {
	return Parse(defaultTable, opts...)
}

// Load reads a species table from path. An empty path uses the embedded table.
func Load(path string, opts ...Option) (*Forecaster, error) {
	if path == "" {
		return New(opts...)
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read species table: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes a YAML species table.
func Parse(data []byte, opts ...Option) (*Forecaster, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode species table: %w", err)
	}
	if len(t.Species) == 0 {
		return nil, fmt.Errorf("species table is empty")
	}
	f := &Forecaster{profiles: make(map[string]Profile, len(t.Species)), count: DefaultProjectionCount}
	for name, profile := range t.Species {
		if err := profile.validate(name); err != nil {
			return nil, err
		}
		f.profiles[normalizeSpecies(name)] = profile
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Species lists the known species names in sorted order.
func (f *Forecaster) Species() []string {
	out := make([]string, 0, len(f.profiles))
	for name := range f.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Profile returns the offsets for a species.
func (f *Forecaster) Profile(species string) (Profile, bool) {
	p, ok := f.profiles[normalizeSpecies(species)]
	return p, ok
}

// Preview projects every milestone from a locked cycle start. Placement keys
// are emitted only when the species defines them.
func (f *Forecaster) Preview(ctx context.Context, lockedCycleStart time.Time, species string) (domain.PreviewBag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := f.Profile(species)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpecies, species)
	}
	cycle := dates.Day(lockedCycleStart)
	ovulation := dates.AddDays(cycle, p.OvulationOffsetDays)
	birth := dates.AddDays(ovulation, p.GestationDays)

	bag := domain.PreviewBag{
		"hormoneTestingStart": format(dates.AddDays(cycle, p.TestingOffsetDays)),
		"ovulation":           format(ovulation),
		"dueDate":             format(birth),
	}
	if p.WeaningDays > 0 {
		bag["weaningExpected"] = format(dates.AddDays(birth, p.WeaningDays))
	}
	if p.PlacementStartDays > 0 {
		start := dates.AddDays(birth, p.PlacementStartDays)
		bag["placementStartExpected"] = format(start)
		if p.PlacementWindowDays > 0 {
			bag["placementCompletedExpected"] = format(dates.AddDays(start, p.PlacementWindowDays))
		}
	}
	return bag, nil
}

// ProjectCycles extends the most recent recorded cycle start by the species
// interval until it yields the configured number of future candidates.
func (f *Forecaster) ProjectCycles(ctx context.Context, history domain.ReproductiveHistory) (domain.CycleProjection, error) {
	if err := ctx.Err(); err != nil {
		return domain.CycleProjection{}, err
	}
	p, ok := f.Profile(history.Species)
	if !ok {
		return domain.CycleProjection{}, fmt.Errorf("%w: %q", ErrUnknownSpecies, history.Species)
	}
	var last time.Time
	for _, start := range history.CycleStarts {
		if start.After(last) {
			last = start
		}
	}
	if last.IsZero() {
		return domain.CycleProjection{}, fmt.Errorf("%w for female %s", ErrNoHistory, history.FemaleID)
	}
	last = dates.Day(last)
	candidates := make([]time.Time, 0, f.count)
	for i := 1; i <= f.count; i++ {
		candidates = append(candidates, dates.AddDays(last, i*p.CycleIntervalDays))
	}
	return domain.CycleProjection{Candidates: candidates}, nil
}

func normalizeSpecies(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func format(t time.Time) string {
	return t.Format(dates.DayLayout)
}
