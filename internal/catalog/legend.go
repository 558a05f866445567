package catalog

// Legend is the derived legend content for a given view. It is computed
// fresh from the active layer set on every state change rather than
// toggled piecemeal, so it can never drift out of sync with the map.
type Legend struct {
	Mode           ViewMode      `json:"mode"`
	Threshold      Threshold     `json:"threshold"`
	ThresholdLabel string        `json:"thresholdLabel"`
	Title          string        `json:"title,omitempty"`
	Entries        []LegendEntry `json:"entries,omitempty"`
	FoodGroups     []FoodGroup   `json:"foodGroups,omitempty"`
	Empty          bool          `json:"empty"`
}

// LegendFor derives the legend for a mode, threshold and active layer
// set. Unknown keys in active are ignored.
func LegendFor(mode ViewMode, t Threshold, active []LayerKey) Legend {
	on := make(map[LayerKey]bool, len(active))
	for _, k := range active {
		on[k] = true
	}

	leg := Legend{
		Mode:           mode,
		Threshold:      t,
		ThresholdLabel: t.Label(),
	}

	if mode == ModeCooccurrence {
		if on[KeyCooccurrence] {
			leg.Title = cooccurrence.Label
			leg.Entries = append([]LegendEntry(nil), cooccurrence.Scale...)
		}
	} else {
		for _, b := range burdens {
			if on[b.Key] {
				leg.Entries = append(leg.Entries, LegendEntry{Label: b.Label, Color: b.ColorDark})
			}
		}
		if len(leg.Entries) > 0 {
			leg.Title = "Individual burdens"
		}
	}

	if on[KeyBreadbaskets] {
		leg.FoodGroups = FoodGroups()
	}

	leg.Empty = len(leg.Entries) == 0 && len(leg.FoodGroups) == 0
	return leg
}
