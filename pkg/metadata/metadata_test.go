/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metadata_test.go
Description: Tests for slicer metadata scraping across slicer comment dialects.
*/

package metadata

import (
	"encoding/json"
	"testing"

	"github.com/kleascm/gcode-analyzer/pkg/gcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func commands(t *testing.T, text string) []gcode.Command {
	t.Helper()
	prog, err := gcode.NewInterpreter(gcode.DefaultOptions(), nil).InterpretString(text)
	require.NoError(t, err)
	return prog.Commands
}

// TestExtractPrusaSlicer tests key = value settings blocks
func TestExtractPrusaSlicer(t *testing.T) {
	md := Extract(commands(t, `; generated by PrusaSlicer 2.6.0+linux-x64 on 2023-08-01 at 10:00:00 UTC
;TYPE:Perimeter
G1 X10 E1
;LAYER_CHANGE
;Z:0.4
; layer_height = 0.2
; first_layer_height = 0.3
; fill_density = 15%
; fill_pattern = gyroid
; nozzle_diameter = 0.4,0.4
; filament_type = PETG;PLA
; temperature = 240
; bed_temperature = 85
; perimeter_speed = 45
; filament_diameter = 1.75
`))

	assert.Equal(t, "PrusaSlicer", md.Name)
	assert.Equal(t, "2.6.0+linux-x64", md.Version)

	lh, ok := md.LayerHeight.Get()
	require.True(t, ok)
	assert.Equal(t, 0.2, lh)
	assert.Equal(t, 0.3, md.FirstLayerHeight.OrElse(0))
	assert.Equal(t, 15.0, md.InfillDensity.OrElse(0))
	assert.Equal(t, "gyroid", md.InfillPattern.OrElse(""))
	assert.Equal(t, 0.4, md.NozzleDiameter.OrElse(0))
	assert.Equal(t, "PETG", md.FilamentType.OrElse(""))
	assert.Equal(t, 240.0, md.NozzleTemp.OrElse(0))
	assert.Equal(t, 85.0, md.BedTemp.OrElse(0))
	assert.Equal(t, 45.0, md.PrintSpeed.OrElse(0))
	assert.Equal(t, 1.75, md.FilamentDiameter.OrElse(0))

	assert.NotContains(t, md.Settings, "type")
	assert.NotContains(t, md.Settings, "z")
	assert.False(t, md.TravelSpeed.Present())
}

// TestExtractCura tests key:value headers
func TestExtractCura(t *testing.T) {
	md := Extract(commands(t, `;FLAVOR:Marlin
;TIME:6666
;Layer height: 0.12
;Generated with Cura_SteamEngine 5.4.0
;LAYER:0
;infill_sparse_density: 0.2
`))

	assert.Equal(t, "Cura", md.Name)
	assert.Equal(t, "5.4.0", md.Version)
	assert.Equal(t, 0.12, md.LayerHeight.OrElse(0))
	assert.InDelta(t, 20.0, md.InfillDensity.OrElse(0), 1e-9)
	assert.Equal(t, "Marlin", md.Settings["flavor"])
	assert.NotContains(t, md.Settings, "layer")
}

// TestExtractSimplify3D tests comma separated settings
func TestExtractSimplify3D(t *testing.T) {
	md := Extract(commands(t, `; G-Code generated by Simplify3D(R) Version 4.1.2
;   layerHeight,0.25
;   extruderDiameter,0.6
;   infillPercentage,30
`))

	assert.Equal(t, "Simplify3D", md.Name)
	assert.Equal(t, "4.1.2", md.Version)
	assert.Equal(t, 0.25, md.LayerHeight.OrElse(0))
	assert.Equal(t, 0.6, md.NozzleDiameter.OrElse(0))
	assert.Equal(t, 30.0, md.InfillDensity.OrElse(0))
}

// TestExtractAbsent tests that missing settings stay absent
func TestExtractAbsent(t *testing.T) {
	md := Extract(commands(t, "G1 X1\n; just a note\n; layer_height = fine\n"))

	assert.Empty(t, md.Name)
	assert.False(t, md.LayerHeight.Present())
	assert.False(t, md.FilamentType.Present())
	assert.Equal(t, []string{"layer_height"}, md.Keys())
}

// TestOptionalEncoding tests null encoding of absent values
func TestOptionalEncoding(t *testing.T) {
	type doc struct {
		A Optional[float64] `json:"a" yaml:"a"`
		B Optional[float64] `json:"b" yaml:"b"`
	}

	b, err := json.Marshal(doc{A: Some(0.2), B: None[float64]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0.2,"b":null}`, string(b))

	var back doc
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.A.Present())
	assert.False(t, back.B.Present())

	y, err := yaml.Marshal(doc{A: Some(0.2)})
	require.NoError(t, err)
	assert.Equal(t, "a: 0.2\nb: null\n", string(y))
}
