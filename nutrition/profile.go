package nutrition

import "sort"

// MacroProfile is a split of daily calories across protein, carbohydrate and
// fat. The three ratios sum to 1.
type MacroProfile struct {
	Name    string  `json:"name"`
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

const (
	ProfileGoalMaintain   = "goal_maintain"
	ProfileGoalLoseWeight = "goal_lose_weight"
	ProfileGoalGainMuscle = "goal_gain_muscle"
	ProfileDietAthlete    = "diet_athlete"
	ProfileDietNormal     = "diet_normal"
	ProfilePlanBalanced   = "plan_balanced"
)

var profiles = map[string]MacroProfile{
	ProfileGoalMaintain:   {Name: ProfileGoalMaintain, Protein: 0.30, Carbs: 0.45, Fat: 0.25},
	ProfileGoalLoseWeight: {Name: ProfileGoalLoseWeight, Protein: 0.35, Carbs: 0.40, Fat: 0.25},
	ProfileGoalGainMuscle: {Name: ProfileGoalGainMuscle, Protein: 0.35, Carbs: 0.45, Fat: 0.20},
	ProfileDietAthlete:    {Name: ProfileDietAthlete, Protein: 0.35, Carbs: 0.45, Fat: 0.20},
	ProfileDietNormal:     {Name: ProfileDietNormal, Protein: 0.25, Carbs: 0.50, Fat: 0.25},
	// Fixed split used when calories are set by hand rather than derived.
	ProfilePlanBalanced: {Name: ProfilePlanBalanced, Protein: 0.30, Carbs: 0.50, Fat: 0.20},
}

// GoalProfile returns the macro profile keyed by goal. Maintain,
// ImproveHealth and an unspecified goal share the default split.
func GoalProfile(g Goal) MacroProfile {
	switch g {
	case LoseWeight:
		return profiles[ProfileGoalLoseWeight]
	case GainMuscle:
		return profiles[ProfileGoalGainMuscle]
	case Maintain, ImproveHealth, GoalUnspecified:
		return profiles[ProfileGoalMaintain]
	}
	return profiles[ProfileGoalMaintain]
}

// DietProfile returns the macro profile keyed by diet type.
func DietProfile(d DietType) (MacroProfile, error) {
	switch d {
	case Athlete:
		return profiles[ProfileDietAthlete], nil
	case Normal:
		return profiles[ProfileDietNormal], nil
	case DietUnspecified:
		return MacroProfile{}, invalid("diet_type", "required for diet based macros")
	}
	return MacroProfile{}, invalid("diet_type", "unknown value %d", int(d))
}

// LookupProfile finds a named profile.
func LookupProfile(name string) (MacroProfile, error) {
	p, ok := profiles[name]
	if !ok {
		return MacroProfile{}, invalid("macro_profile", "unknown profile %q", name)
	}
	return p, nil
}

// Profiles lists every named profile ordered by name.
func Profiles() []MacroProfile {
	out := make([]MacroProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
