package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML tuning file and overlays it on Default. Keys absent from
// the file keep their default values.
func Load(path string) (Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects tunings that would break the engine's invariants.
func (p Policy) Validate() error {
	for name, t := range map[string]float64{
		"hire":      p.Thresholds.Hire,
		"fire":      p.Thresholds.Fire,
		"challenge": p.Thresholds.Challenge,
	} {
		if t <= 0 || t >= 1 {
			return fmt.Errorf("threshold %s must be in (0,1), got %v", name, t)
		}
	}
	if p.StableThreshold < p.FragileThreshold {
		return fmt.Errorf("stable_threshold %d below fragile_threshold %d", p.StableThreshold, p.FragileThreshold)
	}
	if !(p.ReviewPoorMean <= p.ReviewGoodMean && p.ReviewGoodMean <= p.ReviewExcellentMean) {
		return fmt.Errorf("review bands must satisfy poor <= good <= excellent, got %v/%v/%v",
			p.ReviewPoorMean, p.ReviewGoodMean, p.ReviewExcellentMean)
	}
	if p.MergerMaxMembers <= 0 {
		return fmt.Errorf("merger_max_members must be positive")
	}
	return nil
}
