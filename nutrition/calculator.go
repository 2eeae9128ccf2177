// Package nutrition turns body metrics and a stated goal into a daily calorie
// target and a macro split.
//
// The chain is BMR (Mifflin-St Jeor) -> TDEE (activity multiplier) -> goal
// adjusted calories -> grams per macro (4/4/9 kcal per gram). Every function
// is pure and safe to call concurrently.
package nutrition

import "math"

// UserMetrics is the calculator input.
type UserMetrics struct {
	HeightCm      float64       `json:"height"`
	WeightKg      float64       `json:"weight"`
	AgeYears      int           `json:"age"`
	Sex           Sex           `json:"gender"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Goal          Goal          `json:"goal"`
	DietType      DietType      `json:"diet_type,omitempty"`
}

// Macros holds gram targets. Field names follow the plan backend contract.
type Macros struct {
	ProteinGrams int `json:"protein_g"`
	CarbGrams    int `json:"carbs_g"`
	FatGrams     int `json:"fat_g"`
}

// NutritionTarget is the calculator output.
type NutritionTarget struct {
	DailyCalories int    `json:"calories"`
	Macros        Macros `json:"macros"`
}

// Breakdown carries the intermediate values of a calculation next to its
// result.
type Breakdown struct {
	BMR            float64         `json:"bmr"`
	TDEE           float64         `json:"tdee"`
	ActivityFactor float64         `json:"activity_factor"`
	GoalFactor     float64         `json:"goal_factor"`
	Profile        MacroProfile    `json:"macro_profile"`
	Target         NutritionTarget `json:"target"`
}

const (
	kcalPerGramProtein = 4
	kcalPerGramCarb    = 4
	kcalPerGramFat     = 9
)

// DefaultActivityLevel is used when no activity level was given.
const DefaultActivityLevel = Moderate

// ActivityFactor returns the TDEE multiplier for level.
func ActivityFactor(level ActivityLevel) float64 {
	switch level {
	case Sedentary:
		return 1.2
	case Light:
		return 1.375
	case Moderate:
		return 1.55
	case Active:
		return 1.725
	case VeryActive:
		return 1.9
	case ActivityUnspecified:
		return ActivityFactor(DefaultActivityLevel)
	}
	return ActivityFactor(DefaultActivityLevel)
}

// GoalFactor returns the multiplier applied to TDEE for goal.
func GoalFactor(goal Goal) float64 {
	switch goal {
	case LoseWeight:
		return 0.85
	case GainMuscle:
		return 1.15
	case Maintain, ImproveHealth, GoalUnspecified:
		return 1.0
	}
	return 1.0
}

// Accepted metric ranges, inclusive.
const (
	MinHeightCm = 50
	MaxHeightCm = 300
	MinWeightKg = 1
	MaxWeightKg = 500
	MinAgeYears = 1
	MaxAgeYears = 150
)

// Validate checks the fields BMR depends on.
func (m UserMetrics) Validate() error {
	if err := inRange("height", m.HeightCm, MinHeightCm, MaxHeightCm); err != nil {
		return err
	}
	if err := inRange("weight", m.WeightKg, MinWeightKg, MaxWeightKg); err != nil {
		return err
	}
	switch {
	case m.AgeYears == 0:
		return invalid("age", "required")
	case m.AgeYears < 0:
		return invalid("age", "must be positive, got %d", m.AgeYears)
	case m.AgeYears < MinAgeYears || m.AgeYears > MaxAgeYears:
		return invalid("age", "must be between %d and %d, got %d", MinAgeYears, MaxAgeYears, m.AgeYears)
	}
	if m.Sex == SexUnspecified {
		return invalid("gender", "required")
	}
	return nil
}

func inRange(field string, v, lo, hi float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return invalid(field, "not a number")
	case v == 0:
		return invalid(field, "required")
	case v < 0:
		return invalid(field, "must be positive, got %g", v)
	case v < lo || v > hi:
		return invalid(field, "must be between %g and %g, got %g", lo, hi, v)
	}
	return nil
}

// ComputeBMR returns the basal metabolic rate in kcal/day, unrounded.
// Female and Other share the -161 constant. Metrics that are each in range
// but combine to a BMR of zero or less are rejected.
func ComputeBMR(m UserMetrics) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	bmr := 10*m.WeightKg + 6.25*m.HeightCm - 5*float64(m.AgeYears)
	if m.Sex == Male {
		bmr += 5
	} else {
		bmr -= 161
	}
	if bmr <= 0 {
		return 0, invalid("metrics", "yield a non-positive BMR (%g kcal)", bmr)
	}
	return bmr, nil
}

// ComputeTDEE scales bmr by the activity multiplier.
func ComputeTDEE(bmr float64, level ActivityLevel) float64 {
	return bmr * ActivityFactor(level)
}

// ApplyGoalAdjustment returns the rounded daily calorie target.
func ApplyGoalAdjustment(tdee float64, goal Goal) int {
	return roundHalfUp(tdee * GoalFactor(goal))
}

// ComputeMacros converts calories into grams using the profile's ratios.
func ComputeMacros(calories int, p MacroProfile) Macros {
	c := float64(calories)
	return Macros{
		ProteinGrams: roundHalfUp(c * p.Protein / kcalPerGramProtein),
		CarbGrams:    roundHalfUp(c * p.Carbs / kcalPerGramCarb),
		FatGrams:     roundHalfUp(c * p.Fat / kcalPerGramFat),
	}
}

// MacroCalories returns the energy the macro grams of t account for.
func MacroCalories(t NutritionTarget) int {
	return t.Macros.ProteinGrams*kcalPerGramProtein +
		t.Macros.CarbGrams*kcalPerGramCarb +
		t.Macros.FatGrams*kcalPerGramFat
}

// ComputeNutritionTarget runs the full chain with the goal profile.
func ComputeNutritionTarget(m UserMetrics) (NutritionTarget, error) {
	return ComputeNutritionTargetWithProfile(m, GoalProfile(m.Goal))
}

// ComputeNutritionTargetWithProfile runs the full chain with an explicit
// macro profile.
func ComputeNutritionTargetWithProfile(m UserMetrics, p MacroProfile) (NutritionTarget, error) {
	b, err := ComputeBreakdown(m, p)
	if err != nil {
		return NutritionTarget{}, err
	}
	return b.Target, nil
}

// ComputeBreakdown runs the full chain and keeps the intermediate values.
func ComputeBreakdown(m UserMetrics, p MacroProfile) (Breakdown, error) {
	bmr, err := ComputeBMR(m)
	if err != nil {
		return Breakdown{}, err
	}
	tdee := ComputeTDEE(bmr, m.ActivityLevel)
	calories := ApplyGoalAdjustment(tdee, m.Goal)
	if calories <= 0 {
		return Breakdown{}, invalid("metrics", "yield a daily target of %d kcal", calories)
	}
	return Breakdown{
		BMR:            bmr,
		TDEE:           tdee,
		ActivityFactor: ActivityFactor(m.ActivityLevel),
		GoalFactor:     GoalFactor(m.Goal),
		Profile:        p,
		Target: NutritionTarget{
			DailyCalories: calories,
			Macros:        ComputeMacros(calories, p),
		},
	}, nil
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
