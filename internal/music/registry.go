package music

import (
	"fmt"
	"sort"
)

// scaleCatalog groups interval patterns by family. Names are matched
// exactly; families exist mostly for browsing and documentation.
var scaleCatalog = map[string]map[string][]int{
	"Diatonic": {
		"Major": {0, 2, 4, 5, 7, 9, 11},
	},
	"Minor Variants": {
		"Natural Minor":  {0, 2, 3, 5, 7, 8, 10},
		"Harmonic Minor": {0, 2, 3, 5, 7, 8, 11},
		"Melodic Minor":  {0, 2, 3, 5, 7, 9, 11},
	},
	"Modes": {
		"Ionian":     {0, 2, 4, 5, 7, 9, 11},
		"Dorian":     {0, 2, 3, 5, 7, 9, 10},
		"Phrygian":   {0, 1, 3, 5, 7, 8, 10},
		"Lydian":     {0, 2, 4, 6, 7, 9, 11},
		"Mixolydian": {0, 2, 4, 5, 7, 9, 10},
		"Aeolian":    {0, 2, 3, 5, 7, 8, 10},
		"Locrian":    {0, 1, 3, 5, 6, 8, 10},
	},
	"Pentatonic": {
		"Major Pentatonic": {0, 2, 4, 7, 9},
		"Minor Pentatonic": {0, 3, 5, 7, 10},
	},
	"Blues": {
		"Blues": {0, 3, 5, 6, 7, 10},
	},
	"Symmetric": {
		"Whole Tone":            {0, 2, 4, 6, 8, 10},
		"Chromatic":             {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		"Diminished Whole-Half": {0, 2, 3, 5, 6, 8, 9, 11},
	},
	"World": {
		"Hirajoshi":         {0, 2, 3, 7, 8},
		"In Sen":            {0, 1, 5, 7, 10},
		"Phrygian Dominant": {0, 1, 4, 5, 7, 8, 10},
	},
	"Ambient": {
		"Major Add 9": {0, 2, 4, 7, 11},
		"Quartal":     {0, 5, 10},
		"Lydian Hexa": {0, 2, 4, 6, 9, 11},
	},
}

// Families lists the available scale families, sorted.
func Families() []string {
	out := make([]string, 0, len(scaleCatalog))
	for f := range scaleCatalog {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ScalesIn lists the scale names of a family, sorted. Unknown families
// return nil.
func ScalesIn(family string) []string {
	scales, ok := scaleCatalog[family]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(scales))
	for name := range scales {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BuildScale looks up a named scale in a family and roots it at the given
// note name.
func BuildScale(family, name, root string) (Scale, error) {
	scales, ok := scaleCatalog[family]
	if !ok {
		return Scale{}, fmt.Errorf("music: unknown scale family %q", family)
	}
	intervals, ok := scales[name]
	if !ok {
		return Scale{}, fmt.Errorf("music: unknown scale %q in family %q", name, family)
	}
	return NewScale(name, root, intervals)
}

// FindScale searches every family for a scale name and roots it at the
// given note. The first match in family-sorted order wins.
func FindScale(name, root string) (Scale, error) {
	for _, family := range Families() {
		if intervals, ok := scaleCatalog[family][name]; ok {
			return NewScale(name, root, intervals)
		}
	}
	return Scale{}, fmt.Errorf("music: unknown scale %q", name)
}
