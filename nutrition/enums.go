package nutrition

import "strings"

// Sex selects the Mifflin-St Jeor constant.
type Sex int

const (
	SexUnspecified Sex = iota
	Male
	Female
	Other
)

// ActivityLevel selects the TDEE multiplier.
type ActivityLevel int

const (
	ActivityUnspecified ActivityLevel = iota
	Sedentary
	Light
	Moderate
	Active
	VeryActive
)

// Goal selects the calorie adjustment and the goal macro profile.
type Goal int

const (
	GoalUnspecified Goal = iota
	LoseWeight
	Maintain
	GainMuscle
	ImproveHealth
)

// DietType selects the diet macro profile.
type DietType int

const (
	DietUnspecified DietType = iota
	Normal
	Athlete
)

// normalize folds the spellings seen in client payloads ("Very Active",
// "very_active", "VeryActive") onto one lookup key.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func (s Sex) String() string {
	switch s {
	case Male:
		return "Male"
	case Female:
		return "Female"
	case Other:
		return "Other"
	default:
		return ""
	}
}

// ParseSex parses a sex value. The empty string yields SexUnspecified.
func ParseSex(v string) (Sex, error) {
	switch normalize(v) {
	case "":
		return SexUnspecified, nil
	case "male", "m":
		return Male, nil
	case "female", "f":
		return Female, nil
	case "other", "nonbinary", "x":
		return Other, nil
	}
	return SexUnspecified, invalid("gender", "unknown value %q", v)
}

func (s Sex) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Sex) UnmarshalText(b []byte) error {
	v, err := ParseSex(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (a ActivityLevel) String() string {
	switch a {
	case Sedentary:
		return "Sedentary"
	case Light:
		return "Light"
	case Moderate:
		return "Moderate"
	case Active:
		return "Active"
	case VeryActive:
		return "Very Active"
	default:
		return ""
	}
}

// ParseActivityLevel parses an activity level. The empty string yields
// ActivityUnspecified, which the calculator treats as DefaultActivityLevel.
func ParseActivityLevel(v string) (ActivityLevel, error) {
	switch normalize(v) {
	case "":
		return ActivityUnspecified, nil
	case "sedentary":
		return Sedentary, nil
	case "light", "lightlyactive":
		return Light, nil
	case "moderate", "moderatelyactive":
		return Moderate, nil
	case "active":
		return Active, nil
	case "veryactive", "extra", "extraactive":
		return VeryActive, nil
	}
	return ActivityUnspecified, invalid("activity_level", "unknown value %q", v)
}

func (a ActivityLevel) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *ActivityLevel) UnmarshalText(b []byte) error {
	v, err := ParseActivityLevel(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (g Goal) String() string {
	switch g {
	case LoseWeight:
		return "Lose Weight"
	case Maintain:
		return "Maintain"
	case GainMuscle:
		return "Gain Muscle"
	case ImproveHealth:
		return "Improve Health"
	default:
		return ""
	}
}

// ParseGoal parses a goal. The empty string yields GoalUnspecified, which
// behaves as Maintain.
func ParseGoal(v string) (Goal, error) {
	switch normalize(v) {
	case "":
		return GoalUnspecified, nil
	case "loseweight", "lose", "weightloss":
		return LoseWeight, nil
	case "maintain", "maintenance":
		return Maintain, nil
	case "gainmuscle", "musclegain", "gain":
		return GainMuscle, nil
	case "improvehealth", "health":
		return ImproveHealth, nil
	}
	return GoalUnspecified, invalid("goal", "unknown value %q", v)
}

func (g Goal) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Goal) UnmarshalText(b []byte) error {
	v, err := ParseGoal(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

func (d DietType) String() string {
	switch d {
	case Normal:
		return "normal"
	case Athlete:
		return "athlete"
	default:
		return ""
	}
}

// ParseDietType parses a diet type. The empty string yields DietUnspecified.
func ParseDietType(v string) (DietType, error) {
	switch normalize(v) {
	case "":
		return DietUnspecified, nil
	case "normal", "standard":
		return Normal, nil
	case "athlete", "bodybuilder":
		return Athlete, nil
	}
	return DietUnspecified, invalid("diet_type", "unknown value %q", v)
}

func (d DietType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DietType) UnmarshalText(b []byte) error {
	v, err := ParseDietType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
