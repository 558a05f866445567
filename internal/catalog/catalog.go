// Package catalog defines the fixed registry of burden map layers.
//
// Everything here is static: burden definitions, threshold variants,
// co-occurrence scale, food groups, and the tile directory naming that
// binds them to the published raster sets. Accessors return copies so
// callers can never mutate the registry.
package catalog

import "fmt"

// Threshold selects which cut-off variant of the rasters is shown.
type Threshold string

const (
	// ThresholdStrict marks cells as hotspots only above the upper cut-off.
	ThresholdStrict Threshold = "strict"
	// ThresholdLiberal uses the lower cut-off. Presented to users as
	// "Less strict"; the key stays "liberal" because the tile directories
	// are named after it.
	ThresholdLiberal Threshold = "liberal"
)

// Valid reports whether t is a known threshold.
func (t Threshold) Valid() bool {
	return t == ThresholdStrict || t == ThresholdLiberal
}

// Label returns the display name for the threshold.
func (t Threshold) Label() string {
	if t == ThresholdLiberal {
		return "Less strict"
	}
	return "Strict"
}

// ParseThreshold validates a raw threshold key.
func ParseThreshold(s string) (Threshold, error) {
	t := Threshold(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown threshold %q", s)
	}
	return t, nil
}

// Thresholds returns the threshold variants in display order.
func Thresholds() []Threshold {
	return []Threshold{ThresholdStrict, ThresholdLiberal}
}

// ViewMode selects between the combined co-occurrence raster and the
// individual burden rasters.
type ViewMode string

const (
	ModeCooccurrence ViewMode = "cooccurrence"
	ModeIndividual   ViewMode = "individual"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ModeCooccurrence || m == ModeIndividual
}

// Label returns the display name for the mode.
func (m ViewMode) Label() string {
	if m == ModeIndividual {
		return "Individual burdens"
	}
	return "Co-occurrence"
}

// ParseViewMode validates a raw view mode key.
func ParseViewMode(s string) (ViewMode, error) {
	m := ViewMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown view mode %q", s)
	}
	return m, nil
}

// LayerKey identifies a togglable map layer.
type LayerKey string

const (
	KeyBreadbaskets    LayerKey = "breadbaskets"
	KeyCooccurrence    LayerKey = "cooccurrence"
	KeyEnvFootprint    LayerKey = "env_footprint"
	KeyWeatherExtremes LayerKey = "weather_extremes"
	KeyIncomePoverty   LayerKey = "income_poverty"
	KeyMalnutrition    LayerKey = "malnutrition"
)

// IsBurden reports whether key names one of the individual burden layers.
func IsBurden(key LayerKey) bool {
	switch key {
	case KeyEnvFootprint, KeyWeatherExtremes, KeyIncomePoverty, KeyMalnutrition:
		return true
	}
	return false
}

// Known reports whether key names any togglable layer.
func Known(key LayerKey) bool {
	return key == KeyBreadbaskets || key == KeyCooccurrence || IsBurden(key)
}

// BurdenKeys returns the individual burden layer keys in display order.
func BurdenKeys() []LayerKey {
	return []LayerKey{KeyEnvFootprint, KeyWeatherExtremes, KeyIncomePoverty, KeyMalnutrition}
}

// LegendEntry is a single swatch in a layer legend.
type LegendEntry struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

// BurdenLayer describes one of the four individual burden layers.
type BurdenLayer struct {
	Key         LayerKey             `json:"key" doc:"Layer key" example:"env_footprint"`
	Label       string               `json:"label" doc:"Display name"`
	ShortLabel  string               `json:"shortLabel" doc:"Compact name for toggle buttons"`
	Description string               `json:"description" doc:"One-paragraph explanation shown in the info panel"`
	Source      string               `json:"source" doc:"Dataset citation"`
	Icon        string               `json:"icon" doc:"Icon identifier used by the control panel"`
	ColorDark   string               `json:"colorDark" doc:"Primary hotspot color (CSS)"`
	ColorLight  string               `json:"colorLight" doc:"Muted accent color used for button chrome (CSS)"`
	TileDirs    map[Threshold]string `json:"tileDirs" doc:"Tile directory per threshold variant"`
	Legend      []LegendEntry        `json:"legend" doc:"Hotspot / not-hotspot swatches"`
}

// CooccurrenceLayer describes the combined burden-count raster.
type CooccurrenceLayer struct {
	Key         LayerKey             `json:"key" doc:"Layer key" example:"cooccurrence"`
	Label       string               `json:"label" doc:"Display name"`
	Description string               `json:"description" doc:"One-paragraph explanation shown in the info panel"`
	TileDirs    map[Threshold]string `json:"tileDirs" doc:"Tile directory per threshold variant"`
	Scale       []LegendEntry        `json:"scale" doc:"Color ramp for 0 through 4 co-occurring burdens"`
}

// PointLayer describes the breadbaskets vector overlay.
type PointLayer struct {
	Key         LayerKey `json:"key" doc:"Layer key" example:"breadbaskets"`
	Label       string   `json:"label" doc:"Display name"`
	Description string   `json:"description" doc:"One-paragraph explanation shown in the info panel"`
	Dataset     string   `json:"dataset" doc:"Dataset identifier"`
	SourceLayer string   `json:"sourceLayer" doc:"Vector tile source-layer name"`
}

// FoodGroup classifies a breadbasket's dominant production.
type FoodGroup struct {
	Key   string `json:"key" doc:"Food group key" example:"grains"`
	Label string `json:"label" doc:"Display name"`
	Color string `json:"color" doc:"Marker color (CSS)"`
}

// RasterLayer is one concrete raster: a burden or co-occurrence layer
// pinned to a threshold variant. Its ID doubles as the style layer ID.
type RasterLayer struct {
	Key       LayerKey  `json:"key"`
	Threshold Threshold `json:"threshold"`
	ID        string    `json:"id" doc:"Style layer ID" example:"env_footprint_strict"`
	TileDir   string    `json:"tileDir" doc:"Tile directory on the tile host"`
}

var burdens = []BurdenLayer{
	{
		Key:        KeyEnvFootprint,
		Label:      "Environmental footprint",
		ShortLabel: "Environment",
		Description: "Areas where the environmental pressure of food production is highest: " +
			"combined cropland expansion, freshwater withdrawals, nutrient surplus and " +
			"biodiversity loss exceed regional sustainability limits.",
		Source:     "EarthStat cropland composites; FAOSTAT 2020",
		Icon:       "leaf",
		ColorDark:  "#1B5E20",
		ColorLight: "#81C784",
		TileDirs: map[Threshold]string{
			ThresholdStrict:  "env_footprint_strict",
			ThresholdLiberal: "env_footprint_liberal",
		},
		Legend: []LegendEntry{
			{Label: "Hotspot", Color: "#1B5E20"},
			{Label: "Not a hotspot", Color: "#F1F3F4"},
		},
	},
	{
		Key:        KeyWeatherExtremes,
		Label:      "Weather extremes",
		ShortLabel: "Weather",
		Description: "Areas with frequent agriculture-relevant weather extremes: droughts, " +
			"floods and heat waves recur often enough to depress yields in most years.",
		Source:     "ERA5 reanalysis extremes, 1991-2020",
		Icon:       "storm",
		ColorDark:  "#E65100",
		ColorLight: "#FFB74D",
		TileDirs: map[Threshold]string{
			ThresholdStrict:  "weather_extremes_strict",
			ThresholdLiberal: "weather_extremes_liberal",
		},
		Legend: []LegendEntry{
			{Label: "Hotspot", Color: "#E65100"},
			{Label: "Not a hotspot", Color: "#F1F3F4"},
		},
	},
	{
		Key:        KeyIncomePoverty,
		Label:      "Income and poverty",
		ShortLabel: "Poverty",
		Description: "Areas where a large share of the agricultural population lives below " +
			"the international poverty line and farm incomes trail the national median.",
		Source:     "World Bank subnational poverty estimates 2019",
		Icon:       "coin",
		ColorDark:  "#4527A0",
		ColorLight: "#B39DDB",
		TileDirs: map[Threshold]string{
			ThresholdStrict:  "income_poverty_strict",
			ThresholdLiberal: "income_poverty_liberal",
		},
		Legend: []LegendEntry{
			{Label: "Hotspot", Color: "#4527A0"},
			{Label: "Not a hotspot", Color: "#F1F3F4"},
		},
	},
	{
		Key:        KeyMalnutrition,
		Label:      "Malnutrition",
		ShortLabel: "Nutrition",
		Description: "Areas with high prevalence of child stunting and micronutrient " +
			"deficiency despite local food production.",
		Source:     "DHS and MICS stunting surveys, pooled 2015-2021",
		Icon:       "meal",
		ColorDark:  "#B71C1C",
		ColorLight: "#E57373",
		TileDirs: map[Threshold]string{
			ThresholdStrict:  "malnutrition_strict",
			ThresholdLiberal: "malnutrition_liberal",
		},
		Legend: []LegendEntry{
			{Label: "Hotspot", Color: "#B71C1C"},
			{Label: "Not a hotspot", Color: "#F1F3F4"},
		},
	},
}

var cooccurrence = CooccurrenceLayer{
	Key:   KeyCooccurrence,
	Label: "Co-occurring burdens",
	Description: "Counts how many of the four burdens are in a hotspot state for each grid " +
		"cell. Darker cells face several burdens at once.",
	TileDirs: map[Threshold]string{
		ThresholdStrict:  "cooccurrence_strict",
		ThresholdLiberal: "cooccurrence_liberal",
	},
	Scale: []LegendEntry{
		{Label: "0 burdens", Color: "#F1F3F4"},
		{Label: "1 burden", Color: "#FFE082"},
		{Label: "2 burdens", Color: "#FFA726"},
		{Label: "3 burdens", Color: "#E64A19"},
		{Label: "4 burdens", Color: "#B71C1C"},
	},
}

var breadbaskets = PointLayer{
	Key:   KeyBreadbaskets,
	Label: "Breadbaskets",
	Description: "Major production regions that together supply most of the world's " +
		"traded staple food. Markers are colored by dominant food group and sized by " +
		"annual production.",
	Dataset:     "agrifood.breadbaskets",
	SourceLayer: "breadbaskets",
}

var foodGroups = []FoodGroup{
	{Key: "grains", Label: "Grains", Color: "#D9A441"},
	{Key: "roots_tubers", Label: "Roots & tubers", Color: "#8D6E63"},
	{Key: "fruits_vegetables", Label: "Fruits & vegetables", Color: "#43A047"},
	{Key: "oils_pulses", Label: "Oils & pulses", Color: "#7CB342"},
	{Key: "livestock", Label: "Livestock & dairy", Color: "#C62828"},
	{Key: "fisheries", Label: "Fisheries & aquaculture", Color: "#0277BD"},
}

// fallbackFoodGroup is returned for unknown or missing food group keys.
var fallbackFoodGroup = FoodGroup{Key: "other", Label: "Other", Color: "#9E9E9E"}

// Burdens returns the individual burden layers in display order.
func Burdens() []BurdenLayer {
	out := make([]BurdenLayer, len(burdens))
	for i, b := range burdens {
		out[i] = copyBurden(b)
	}
	return out
}

// Burden returns a single burden layer by key.
func Burden(key LayerKey) (BurdenLayer, bool) {
	for _, b := range burdens {
		if b.Key == key {
			return copyBurden(b), true
		}
	}
	return BurdenLayer{}, false
}

// Cooccurrence returns the combined burden-count layer.
func Cooccurrence() CooccurrenceLayer {
	c := cooccurrence
	c.TileDirs = copyDirs(c.TileDirs)
	c.Scale = append([]LegendEntry(nil), c.Scale...)
	return c
}

// Breadbaskets returns the breadbaskets point layer descriptor.
func Breadbaskets() PointLayer {
	return breadbaskets
}

// FoodGroups returns the food groups in display order, excluding the
// fallback group.
func FoodGroups() []FoodGroup {
	return append([]FoodGroup(nil), foodGroups...)
}

// FoodGroupFor resolves a raw food group key. Unknown keys map to the
// "Other" fallback so a stray property can never break rendering.
func FoodGroupFor(key string) FoodGroup {
	for _, g := range foodGroups {
		if g.Key == key {
			return g
		}
	}
	return fallbackFoodGroup
}

// RasterLayers returns every raster variant in stable order: the
// co-occurrence pair first, then each burden's strict and liberal
// variants in display order.
func RasterLayers() []RasterLayer {
	out := make([]RasterLayer, 0, 2+2*len(burdens))
	for _, t := range Thresholds() {
		out = append(out, RasterLayer{
			Key:       KeyCooccurrence,
			Threshold: t,
			ID:        rasterID(KeyCooccurrence, t),
			TileDir:   cooccurrence.TileDirs[t],
		})
	}
	for _, b := range burdens {
		for _, t := range Thresholds() {
			out = append(out, RasterLayer{
				Key:       b.Key,
				Threshold: t,
				ID:        rasterID(b.Key, t),
				TileDir:   b.TileDirs[t],
			})
		}
	}
	return out
}

// RasterID returns the style layer ID for a layer key and threshold.
func RasterID(key LayerKey, t Threshold) string {
	return rasterID(key, t)
}

func rasterID(key LayerKey, t Threshold) string {
	return string(key) + "_" + string(t)
}

// TileDir returns the tile directory for a raster layer key and
// threshold, or false for the breadbaskets key and unknown keys.
func TileDir(key LayerKey, t Threshold) (string, bool) {
	if key == KeyCooccurrence {
		dir, ok := cooccurrence.TileDirs[t]
		return dir, ok
	}
	for _, b := range burdens {
		if b.Key == key {
			dir, ok := b.TileDirs[t]
			return dir, ok
		}
	}
	return "", false
}

// DefaultOpacity returns the initial opacity for a layer.
func DefaultOpacity(key LayerKey) float64 {
	if key == KeyBreadbaskets {
		return 1.0
	}
	return 0.8
}

func copyBurden(b BurdenLayer) BurdenLayer {
	b.TileDirs = copyDirs(b.TileDirs)
	b.Legend = append([]LegendEntry(nil), b.Legend...)
	return b
}

func copyDirs(dirs map[Threshold]string) map[Threshold]string {
	out := make(map[Threshold]string, len(dirs))
	for k, v := range dirs {
		out[k] = v
	}
	return out
}
