package cliapp

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/BoweyLou/obssync/internal/dedup"
)

// PromptDisposition runs one interactive multi-select form per cluster,
// letting the operator choose which members to keep. Every unchecked
// member becomes a delete target. Skipped entirely when
// --dedup-auto-apply or --no-dedup is set.
func PromptDisposition(clusters []dedup.Cluster) (dedup.Disposition, error) {
	decisions := make(dedup.Disposition, len(clusters))
	for _, cluster := range clusters {
		options := make([]huh.Option[string], len(cluster.Members))
		defaults := make([]string, 0, 1)
		for i, m := range cluster.Members {
			label := fmt.Sprintf("%s (%s, due %s, %s)", m.Description, m.Location, m.DueDate, m.Status)
			options[i] = huh.NewOption(label, m.ID)
			if i == 0 {
				defaults = append(defaults, m.ID)
			}
		}

		var kept []string = defaults
		field := huh.NewMultiSelect[string]().
			Title(fmt.Sprintf("Duplicate cluster %q - keep which?", cluster.ID)).
			Options(options...).
			Value(&kept)

		form := huh.NewForm(huh.NewGroup(field))
		if err := form.Run(); err != nil {
			return nil, fmt.Errorf("cliapp: dedup prompt: %w", err)
		}

		keptSet := make(map[string]struct{}, len(kept))
		for _, id := range kept {
			keptSet[id] = struct{}{}
		}
		decisions[cluster.ID] = keptSet
	}
	return decisions, nil
}
