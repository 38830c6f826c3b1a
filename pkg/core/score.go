/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: score.go
Description: Print-profile score. A coarse 60..100 grade that starts from 100 and deducts
for very fine layers, dense infill and bridges printed without support.
*/

package core

import (
	"strings"

	"github.com/kleascm/gcode-analyzer/pkg/analysis"
	"github.com/kleascm/gcode-analyzer/pkg/metadata"
	"github.com/spf13/cast"
)

const (
	scoreFloor         = 60
	fineLayerHeight    = 0.15 // mm
	fineLayerPenalty   = 10
	denseInfill        = 30.0 // percent
	denseInfillPenalty = 10
	bridgePenalty      = 15
)

// supportKeys are slicer settings that enable support material
var supportKeys = []string{"support_material", "support_enable", "enable_support", "supportmaterial", "generatesupport"}

// Score grades the print profile. Declared settings win over inferred ones.
func Score(a *analysis.Analysis, md metadata.SlicerMetadata) int {
	if a == nil {
		return scoreFloor
	}
	score := 100

	if lh := md.LayerHeight.OrElse(a.InferredLayerHeight); lh > 0 && lh < fineLayerHeight {
		score -= fineLayerPenalty
	}
	if md.InfillDensity.OrElse(a.InfillDensity) > denseInfill {
		score -= denseInfillPenalty
	}
	if hasFeature(a, "BRIDGE") && !supported(a, md) {
		score -= bridgePenalty
	}

	return max(score, scoreFloor)
}

// hasFeature reports whether any extrusion carries a slicer tag containing fragment
func hasFeature(a *analysis.Analysis, fragment string) bool {
	for _, l := range a.Layers {
		for _, x := range l.Extrusions {
			if strings.Contains(strings.ToUpper(x.Feature), fragment) {
				return true
			}
		}
	}
	return false
}

func supported(a *analysis.Analysis, md metadata.SlicerMetadata) bool {
	for _, k := range supportKeys {
		if v, ok := md.Settings[k]; ok && cast.ToBool(strings.TrimSpace(v)) {
			return true
		}
	}
	return hasFeature(a, "SUPPORT")
}
