package forecast

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"breedcore/pkg/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewLoadsEmbeddedTable(t *testing.T) {
	f, err := New()
	require.NoError(t, err)
	require.Equal(t, []string{"CAT", "DOG", "HORSE"}, f.Species())

	dog, ok := f.Profile(" dog ")
	require.True(t, ok)
	require.Equal(t, 63, dog.GestationDays)
}

func TestPreviewEmitsAliasKeys(t *testing.T) {
	f, err := New()
	require.NoError(t, err)

	bag, err := f.Preview(context.Background(), day("2026-03-01"), "DOG")
	require.NoError(t, err)
	require.Equal(t, "2026-03-06", bag["hormoneTestingStart"])
	require.Equal(t, "2026-03-13", bag["ovulation"])
	require.Equal(t, "2026-05-15", bag["dueDate"])
	require.Equal(t, "2026-07-03", bag["weaningExpected"])
	require.NotContains(t, bag, "placementStartExpected")
	require.NotContains(t, bag, "placementCompletedExpected")
}

func TestPreviewIncludesPlacementWhenConfigured(t *testing.T) {
	f, err := New()
	require.NoError(t, err)

	bag, err := f.Preview(context.Background(), day("2026-01-01"), "cat")
	require.NoError(t, err)
	// cycle 01-01, ovulation +4, gestation +65 => birth 2026-03-11
	require.Equal(t, "2026-03-11", bag["dueDate"])
	require.Equal(t, "2026-06-03", bag["placementStartExpected"])
	require.Equal(t, "2026-07-01", bag["placementCompletedExpected"])
}

func TestPreviewUnknownSpecies(t *testing.T) {
	f, err := New()
	require.NoError(t, err)
	_, err = f.Preview(context.Background(), day("2026-01-01"), "ferret")
	require.ErrorIs(t, err, ErrUnknownSpecies)
}

func TestPreviewHonoursContext(t *testing.T) {
	f, err := New()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Preview(ctx, day("2026-01-01"), "DOG")
	require.ErrorIs(t, err, context.Canceled)
}

func TestProjectCyclesFromLatestStart(t *testing.T) {
	f, err := New(WithProjectionCount(3))
	require.NoError(t, err)

	projection, err := f.ProjectCycles(context.Background(), domain.ReproductiveHistory{
		FemaleID:    "dam-1",
		Species:     "CAT",
		CycleStarts: []time.Time{day("2026-01-20"), day("2026-01-01"), day("2025-12-11")},
	})
	require.NoError(t, err)
	require.Equal(t, []time.Time{day("2026-02-10"), day("2026-03-03"), day("2026-03-24")}, projection.Candidates)
	require.Nil(t, projection.Pending)
}

func TestProjectCyclesErrors(t *testing.T) {
	f, err := New()
	require.NoError(t, err)

	_, err = f.ProjectCycles(context.Background(), domain.ReproductiveHistory{FemaleID: "dam-1", Species: "DOG"})
	require.ErrorIs(t, err, ErrNoHistory)

	_, err = f.ProjectCycles(context.Background(), domain.ReproductiveHistory{Species: "EMU", CycleStarts: []time.Time{day("2026-01-01")}})
	require.ErrorIs(t, err, ErrUnknownSpecies)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "species.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`species:
  rabbit:
    cycle_interval_days: 16
    ovulation_offset_days: 1
    gestation_days: 31
`), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"RABBIT"}, f.Species())

	embedded, err := Load("")
	require.NoError(t, err)
	require.Len(t, embedded.Species(), 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseRejectsInvalidTables(t *testing.T) {
	_, err := Parse([]byte("species: {}"))
	require.Error(t, err)

	_, err = Parse([]byte("species:\n  DOG:\n    gestation_days: 63\n"))
	require.ErrorContains(t, err, "cycle_interval_days")

	_, err = Parse([]byte("::not yaml"))
	require.Error(t, err)
}
