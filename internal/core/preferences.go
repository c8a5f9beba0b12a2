package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"breedcore/pkg/domain"
)

// Phase names a span between two milestone anchors.
type Phase string

// Phases rendered on the timeline.
const (
	PhaseCycleToBreeding  Phase = "cycleToBreeding"
	PhaseBirthToPlacement Phase = "birthToPlacement"
)

// PhaseSpec describes the anchors and label of a phase track.
type PhaseSpec struct {
	Phase Phase
	Label string
	From  domain.Milestone
	To    domain.Milestone
}

// Phases lists the phase tracks in display order.
var Phases = []PhaseSpec{
	{Phase: PhaseCycleToBreeding, Label: "Cycle → Breeding", From: domain.MilestoneCycle, To: domain.MilestoneBreeding},
	{Phase: PhaseBirthToPlacement, Label: "Birth → Placement", From: domain.MilestoneBirth, To: domain.MilestonePlacementCompleted},
}

// Preferences is one layer of timeline display settings. Every field is
// optional; a nil toggle means "not decided at this layer".
type Preferences struct {
	ShowPhaseBands *bool                            `yaml:"show_phase_bands,omitempty" json:"show_phase_bands,omitempty"`
	ShowExactBands *bool                            `yaml:"show_exact_bands,omitempty" json:"show_exact_bands,omitempty"`
	AutoWidenBands *bool                            `yaml:"auto_widen_bands,omitempty" json:"auto_widen_bands,omitempty"`
	MilestoneBands map[domain.Milestone]BandOffsets `yaml:"milestone_bands,omitempty" json:"milestone_bands,omitempty"`
	PhaseBands     map[Phase]BandOffsets            `yaml:"phase_bands,omitempty" json:"phase_bands,omitempty"`
}

// PreferenceFile is the on-disk shape holding the user snapshot and the
// tenant-level defaults.
type PreferenceFile struct {
	User   Preferences `yaml:"user"`
	Tenant Preferences `yaml:"tenant"`
}

// ResolvedPreferences is the fully decided configuration for one
// computation pass. Builders consume only this type.
type ResolvedPreferences struct {
	ShowPhaseBands bool
	ShowExactBands bool
	AutoWidenBands bool
	MilestoneBands map[domain.Milestone]Band
	PhaseBands     map[Phase]Band
}

// ResolvePreferences decides every option from the user snapshot first, then
// the tenant default, then false / zero. Bands are normalized here so
// deeper helpers never see raw offsets.
func ResolvePreferences(user, tenant Preferences) ResolvedPreferences {
	resolved := ResolvedPreferences{
		ShowPhaseBands: firstBool(user.ShowPhaseBands, tenant.ShowPhaseBands),
		ShowExactBands: firstBool(user.ShowExactBands, tenant.ShowExactBands),
		AutoWidenBands: firstBool(user.AutoWidenBands, tenant.AutoWidenBands),
		MilestoneBands: make(map[domain.Milestone]Band, len(domain.Milestones)),
		PhaseBands:     make(map[Phase]Band, len(Phases)),
	}
	for _, m := range domain.Milestones {
		resolved.MilestoneBands[m] = NormalizeBand(mergeOffsets(user.MilestoneBands[m], tenant.MilestoneBands[m]), resolved.AutoWidenBands)
	}
	for _, p := range Phases {
		resolved.PhaseBands[p.Phase] = NormalizeBand(mergeOffsets(user.PhaseBands[p.Phase], tenant.PhaseBands[p.Phase]), resolved.AutoWidenBands)
	}
	return resolved
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func mergeOffsets(user, tenant BandOffsets) BandOffsets {
	return BandOffsets{
		RiskyFrom:    firstInt(user.RiskyFrom, tenant.RiskyFrom),
		RiskyTo:      firstInt(user.RiskyTo, tenant.RiskyTo),
		UnlikelyFrom: firstInt(user.UnlikelyFrom, tenant.UnlikelyFrom),
		UnlikelyTo:   firstInt(user.UnlikelyTo, tenant.UnlikelyTo),
	}
}

// LoadPreferenceFile reads a YAML preference file. A missing path yields
// empty layers so every option falls through to false / zero.
func LoadPreferenceFile(path string) (PreferenceFile, error) {
	var file PreferenceFile
	if path == "" {
		return file, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return file, fmt.Errorf("read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("decode preferences: %w", err)
	}
	return file, nil
}

// Resolve decides the file's layers.
func (f PreferenceFile) Resolve() ResolvedPreferences {
	return ResolvePreferences(f.User, f.Tenant)
}
