// Package platform maps raw venue labels from the quoting service to
// display names used in explanations and verdicts.
package platform

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayNames covers the venue labels commonly returned by Solana
// aggregators. Unknown labels are title-cased as-is.
var displayNames = map[string]string{
	"orca":           "Orca",
	"raydium":        "Raydium",
	"raydium_clmm":   "Raydium CLMM",
	"serum":          "Serum",
	"lifinity":       "Lifinity",
	"lifinity_v2":    "Lifinity V2",
	"crema":          "Crema",
	"mercurial":      "Mercurial",
	"saber":          "Saber",
	"aldrin":         "Aldrin",
	"cropper":        "Cropper",
	"invariant":      "Invariant",
	"goosefx":        "GooseFX",
	"deltafi":        "DeltaFi",
	"marinade":       "Marinade",
	"step":           "Step",
	"stepn":          "STEPN",
	"sencha":         "Sencha",
	"saros":          "Saros",
	"cykura":         "Cykura",
	"phoenix":        "Phoenix",
	"meteora":        "Meteora",
	"meteora_dlmm":   "Meteora DLMM",
	"openbook":       "OpenBook",
	"balansol":       "Balansol",
	"pump":           "Pump",
	"whirlpool":      "Whirlpool",
	"orca_whirlpool": "Orca Whirlpool",
	"mango":          "Mango",
	"dexlab":         "Dexlab",
}

// DisplayName returns the human-readable name for a venue label.
func DisplayName(label string) string {
	if name, ok := displayNames[strings.ToLower(label)]; ok {
		return name
	}
	return titleCaser.String(strings.ToLower(label))
}

// JoinDisplayNames renders a label list as a comma-separated display string.
func JoinDisplayNames(labels []string) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = DisplayName(l)
	}
	return strings.Join(names, ", ")
}
