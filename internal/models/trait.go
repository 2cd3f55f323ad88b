package models

import "fmt"

// TraitCategory is the closed set of officer-like-quality factors that the
// analysis backend scores against. Keeping it a closed enum (rather than
// free-form strings from the backend) means an unknown trait is a parse
// error at the boundary, not a silent fall-through in rendering code.
type TraitCategory int

const (
	TraitPlanning TraitCategory = iota
	TraitSocialAdjustment
	TraitSocialEffectiveness
	TraitDynamic
)

// AllTraitCategories lists every category, in factor order.
func AllTraitCategories() []TraitCategory {
	return []TraitCategory{TraitPlanning, TraitSocialAdjustment, TraitSocialEffectiveness, TraitDynamic}
}

func (t TraitCategory) String() string {
	switch t {
	case TraitPlanning:
		return "planning"
	case TraitSocialAdjustment:
		return "social_adjustment"
	case TraitSocialEffectiveness:
		return "social_effectiveness"
	case TraitDynamic:
		return "dynamic"
	}
	return fmt.Sprintf("TraitCategory(%d)", int(t))
}

// ParseTraitCategory maps a backend trait string onto the enum.
func ParseTraitCategory(s string) (TraitCategory, error) {
	switch s {
	case "planning":
		return TraitPlanning, nil
	case "social_adjustment":
		return TraitSocialAdjustment, nil
	case "social_effectiveness":
		return TraitSocialEffectiveness, nil
	case "dynamic":
		return TraitDynamic, nil
	}
	return 0, fmt.Errorf("unknown trait category %q", s)
}

// TraitMeta is the display metadata for one trait category.
type TraitMeta struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Meta returns the display metadata for the category. The switch is
// exhaustive over the enum; adding a category without display metadata
// falls through to the zero TraitMeta, which renders visibly blank.
func (t TraitCategory) Meta() TraitMeta {
	switch t {
	case TraitPlanning:
		return TraitMeta{
			Label:       "Planning & Organising",
			Description: "Effective intelligence, reasoning, organising ability and power of expression.",
		}
	case TraitSocialAdjustment:
		return TraitMeta{
			Label:       "Social Adjustment",
			Description: "Adaptability, sense of responsibility and cooperation with the group.",
		}
	case TraitSocialEffectiveness:
		return TraitMeta{
			Label:       "Social Effectiveness",
			Description: "Initiative, self-confidence, liveliness and ability to influence the group.",
		}
	case TraitDynamic:
		return TraitMeta{
			Label:       "Dynamic",
			Description: "Determination, courage, stamina and drive under pressure.",
		}
	}
	return TraitMeta{}
}
