/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metadata.go
Description: Slicer metadata extraction. Scrapes the settings that slicers embed in
G-code comments (key = value, key: value and Simplify3D key,value forms), detects the
slicer name and version, and converts well-known settings to typed optional values.
*/

package metadata

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/spf13/cast"
)

// SlicerMetadata is the settings block declared by the slicer that produced a file
type SlicerMetadata struct {
	Name     string            `json:"name" yaml:"name"`
	Version  string            `json:"version" yaml:"version"`
	Settings map[string]string `json:"settings" yaml:"settings"` // Normalized key to raw value

	LayerHeight      Optional[float64] `json:"layer_height" yaml:"layer_height"`           // mm
	FirstLayerHeight Optional[float64] `json:"first_layer_height" yaml:"first_layer_height"` // mm
	NozzleTemp       Optional[float64] `json:"nozzle_temp" yaml:"nozzle_temp"`             // °C
	BedTemp          Optional[float64] `json:"bed_temp" yaml:"bed_temp"`                   // °C
	PrintSpeed       Optional[float64] `json:"print_speed" yaml:"print_speed"`             // mm/s
	TravelSpeed      Optional[float64] `json:"travel_speed" yaml:"travel_speed"`           // mm/s
	InfillDensity    Optional[float64] `json:"infill_density" yaml:"infill_density"`       // percent
	NozzleDiameter   Optional[float64] `json:"nozzle_diameter" yaml:"nozzle_diameter"`     // mm
	FilamentDiameter Optional[float64] `json:"filament_diameter" yaml:"filament_diameter"` // mm
	FilamentDensity  Optional[float64] `json:"filament_density" yaml:"filament_density"`   // g/cm³
	FilamentType     Optional[string]  `json:"filament_type" yaml:"filament_type"`
	InfillPattern    Optional[string]  `json:"infill_pattern" yaml:"infill_pattern"`
}

var (
	generatorRe = regexp.MustCompile(`(?i)generated (?:by|with) ([A-Za-z][A-Za-z0-9_\- ]*?)[ _]v?(\d+(?:\.\d+)+\S*)`)
	s3dRe       = regexp.MustCompile(`(?i)Simplify3D\(R\) Version (\S+)`)
	keyEqRe     = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_ \-]*?)\s*=\s*(.*)$`)
	keyColonRe  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_ \-]*?)\s*:\s*(.+)$`)
	keyCommaRe  = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*),(.*)$`)
)

// knownSlicers maps a lower-case generator fragment to its display name
var knownSlicers = []struct{ fragment, name string }{
	{"prusaslicer", "PrusaSlicer"},
	{"superslicer", "SuperSlicer"},
	{"orcaslicer", "OrcaSlicer"},
	{"bambustudio", "BambuStudio"},
	{"cura", "Cura"},
	{"simplify3d", "Simplify3D"},
	{"ideamaker", "ideaMaker"},
	{"slic3r", "Slic3r"},
}

// ignoredKeys are per-layer or per-feature markers rather than settings
var ignoredKeys = map[string]bool{
	"layer": true, "type": true, "mesh": true, "width": true, "height": true,
	"z": true, "layer_change": true, "time_elapsed": true, "feature": true,
}

// Setting aliases across slicers, normalized to lower snake case
var (
	layerHeightKeys      = []string{"layer_height", "layerheight"}
	firstLayerHeightKeys = []string{"first_layer_height", "initial_layer_print_height", "layer_height_0", "firstlayerheightpercentage"}
	nozzleTempKeys       = []string{"temperature", "nozzle_temperature", "material_print_temperature", "extruder_temperature"}
	bedTempKeys          = []string{"bed_temperature", "material_bed_temperature", "hot_plate_temp"}
	printSpeedKeys       = []string{"print_speed", "speed_print", "perimeter_speed", "outer_wall_speed"}
	travelSpeedKeys      = []string{"travel_speed", "speed_travel"}
	infillDensityKeys    = []string{"fill_density", "infill_sparse_density", "sparse_infill_density", "infillpercentage", "infill_density"}
	infillPatternKeys    = []string{"fill_pattern", "infill_pattern", "sparse_infill_pattern"}
	nozzleDiameterKeys   = []string{"nozzle_diameter", "machine_nozzle_size", "extruderdiameter"}
	filamentDiameterKeys = []string{"filament_diameter", "material_diameter", "filamentdiameters"}
	filamentDensityKeys  = []string{"filament_density", "material_density", "filamentdensities"}
	filamentTypeKeys     = []string{"filament_type", "material_type", "filamenttype"}
)

// Extract scrapes slicer metadata from comment commands. Missing settings stay absent.
func Extract(commands []gcode.Command) SlicerMetadata {
	md := SlicerMetadata{Settings: make(map[string]string)}

	for _, cmd := range commands {
		if !cmd.IsComment() {
			continue
		}
		text := strings.TrimSpace(cmd.Comment)
		if text == "" {
			continue
		}

		if md.Name == "" {
			md.Name, md.Version = detectSlicer(text)
		}

		key, value, ok := splitSetting(text)
		if !ok || ignoredKeys[key] {
			continue
		}
		md.Settings[key] = value
	}

	md.LayerHeight = md.float(layerHeightKeys)
	md.FirstLayerHeight = md.float(firstLayerHeightKeys)
	md.NozzleTemp = md.float(nozzleTempKeys)
	md.BedTemp = md.float(bedTempKeys)
	md.PrintSpeed = md.float(printSpeedKeys)
	md.TravelSpeed = md.float(travelSpeedKeys)
	md.InfillDensity = md.float(infillDensityKeys)
	md.NozzleDiameter = md.float(nozzleDiameterKeys)
	md.FilamentDiameter = md.float(filamentDiameterKeys)
	md.FilamentDensity = md.float(filamentDensityKeys)
	md.FilamentType = md.text(filamentTypeKeys)
	md.InfillPattern = md.text(infillPatternKeys)

	// Densities at or below 1 without a percent sign are fractions
	if v, ok := md.InfillDensity.Get(); ok && v > 0 && v <= 1 && !strings.Contains(md.raw(infillDensityKeys), "%") {
		md.InfillDensity = Some(v * 100)
	}
	return md
}

// Keys returns the scraped setting names in sorted order
func (m SlicerMetadata) Keys() []string {
	keys := make([]string, 0, len(m.Settings))
	for k := range m.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// detectSlicer recognizes generator banners
func detectSlicer(text string) (string, string) {
	if m := s3dRe.FindStringSubmatch(text); m != nil {
		return "Simplify3D", m[1]
	}
	m := generatorRe.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	name := strings.TrimSpace(m[1])
	lower := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	for _, s := range knownSlicers {
		if strings.Contains(lower, s.fragment) {
			return s.name, m[2]
		}
	}
	return name, m[2]
}

// splitSetting parses one comment as a key/value pair
func splitSetting(text string) (string, string, bool) {
	for _, re := range []*regexp.Regexp{keyEqRe, keyColonRe, keyCommaRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return normalizeKey(m[1]), strings.TrimSpace(m[2]), true
		}
	}
	return "", "", false
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

// raw returns the first declared value among the aliases
func (m SlicerMetadata) raw(keys []string) string {
	for _, k := range keys {
		if v, ok := m.Settings[k]; ok {
			return v
		}
	}
	return ""
}

func (m SlicerMetadata) float(keys []string) Optional[float64] {
	for _, k := range keys {
		v, ok := m.Settings[k]
		if !ok {
			continue
		}
		if f, err := cast.ToFloat64E(cleanNumber(v)); err == nil {
			return Some(f)
		}
	}
	return None[float64]()
}

func (m SlicerMetadata) text(keys []string) Optional[string] {
	for _, k := range keys {
		if v, ok := m.Settings[k]; ok {
			if s := strings.Trim(firstItem(v), `"' `); s != "" {
				return Some(s)
			}
		}
	}
	return None[string]()
}

// cleanNumber strips units and list separators: "20%" -> "20", "0.4,0.4" -> "0.4"
func cleanNumber(v string) string {
	v = firstItem(v)
	v = strings.Trim(v, `"' `)
	v = strings.TrimSuffix(v, "%")
	v = strings.TrimSuffix(v, "mm")
	return strings.TrimSpace(v)
}

func firstItem(v string) string {
	if i := strings.IndexAny(v, ",;"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
