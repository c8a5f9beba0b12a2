package core

import (
	"os"
	"path/filepath"
	"testing"

	"breedcore/pkg/domain"
)

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func TestResolvePreferencesUserThenTenant(t *testing.T) {
	user := Preferences{
		ShowPhaseBands: boolPtr(false),
		MilestoneBands: map[domain.Milestone]BandOffsets{
			domain.MilestoneBirth: {RiskyFrom: intPtr(2)},
		},
	}
	tenant := Preferences{
		ShowPhaseBands: boolPtr(true),
		ShowExactBands: boolPtr(true),
		AutoWidenBands: boolPtr(true),
		MilestoneBands: map[domain.Milestone]BandOffsets{
			domain.MilestoneBirth: Offsets(5, 3, 3, 3),
		},
	}
	got := ResolvePreferences(user, tenant)
	if got.ShowPhaseBands {
		t.Fatalf("user false must beat tenant true")
	}
	if !got.ShowExactBands || !got.AutoWidenBands {
		t.Fatalf("tenant toggles should fill gaps: %+v", got)
	}
	want := Band{RiskyFrom: -2, RiskyTo: 3, UnlikelyFrom: -3, UnlikelyTo: 4}
	if band := got.MilestoneBands[domain.MilestoneBirth]; band != want {
		t.Fatalf("expected merged band %+v, got %+v", want, band)
	}
	if band := got.MilestoneBands[domain.MilestoneCycle]; !band.IsZero() {
		t.Fatalf("unset milestone band should be zero, got %+v", band)
	}
	if len(got.PhaseBands) != len(Phases) {
		t.Fatalf("every phase should be resolved, got %d", len(got.PhaseBands))
	}
}

func TestResolvePreferencesDefaultsFalse(t *testing.T) {
	got := ResolvePreferences(Preferences{}, Preferences{})
	if got.ShowPhaseBands || got.ShowExactBands || got.AutoWidenBands {
		t.Fatalf("empty layers should resolve false: %+v", got)
	}
}

func TestLoadPreferenceFile(t *testing.T) {
	file, err := LoadPreferenceFile("")
	if err != nil || file.User.ShowPhaseBands != nil {
		t.Fatalf("empty path should yield empty layers: %+v %v", file, err)
	}
	if _, err := LoadPreferenceFile(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Fatalf("missing file should be tolerated: %v", err)
	}

	path := filepath.Join(t.TempDir(), "prefs.yaml")
	body := `
user:
  show_phase_bands: true
tenant:
  show_phase_bands: false
  auto_widen_bands: true
  phase_bands:
    cycleToBreeding:
      risky_from: 2
      risky_to: 2
      unlikely_from: 2
      unlikely_to: 2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	file, err = LoadPreferenceFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	resolved := file.Resolve()
	if !resolved.ShowPhaseBands || !resolved.AutoWidenBands {
		t.Fatalf("unexpected toggles %+v", resolved)
	}
	want := Band{RiskyFrom: -2, RiskyTo: 2, UnlikelyFrom: -3, UnlikelyTo: 3}
	if band := resolved.PhaseBands[PhaseCycleToBreeding]; band != want {
		t.Fatalf("expected %+v, got %+v", want, band)
	}

	if err := os.WriteFile(path, []byte("user: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPreferenceFile(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
