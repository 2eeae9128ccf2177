package main

import (
	"encoding/json"

	"nutrition-target-api/nutrition"
)

const (
	macroBasisGoal     = "goal"
	macroBasisDietType = "diet_type"
)

type TargetRequest struct {
	nutrition.UserMetrics
	MacroProfile string `json:"macro_profile,omitempty"`
	MacroBasis   string `json:"macro_basis,omitempty"`
}

type MacrosRequest struct {
	Calories     int    `json:"calories"`
	MacroProfile string `json:"macro_profile"`
}

type MacrosResponse struct {
	Calories int                    `json:"calories"`
	Macros   nutrition.Macros       `json:"macros"`
	Profile  nutrition.MacroProfile `json:"macro_profile"`
}

type BatchRequest struct {
	Items []TargetRequest `json:"items"`
}

type BatchResult struct {
	Breakdown *nutrition.Breakdown `json:"breakdown,omitempty"`
	Error     string               `json:"error,omitempty"`
	Field     string               `json:"field,omitempty"`
}

type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// PlanRequest asks for a meal plan. Metrics may be omitted to reuse the ones
// stored in the caller's session.
type PlanRequest struct {
	Metrics      *nutrition.UserMetrics `json:"metrics,omitempty"`
	MacroProfile string                 `json:"macro_profile,omitempty"`
	MacroBasis   string                 `json:"macro_basis,omitempty"`
	DietPref     string                 `json:"diet_pref,omitempty"`
	Allergies    []string               `json:"allergies,omitempty"`
}

type PlanResponse struct {
	PlanID   string           `json:"plan_id"`
	Plan     json.RawMessage  `json:"plan"`
	Calories int              `json:"calories"`
	Macros   nutrition.Macros `json:"macros"`
}

// SwapMealRequest replaces one meal of the stored plan. Day is the plan's
// day label, a name or a number.
type SwapMealRequest struct {
	Day       json.RawMessage `json:"day"`
	MealIndex int             `json:"meal_index"`
	DietPref  string          `json:"diet_pref,omitempty"`
	Allergies []string        `json:"allergies,omitempty"`
}

type SwapMealResponse struct {
	PlanID    string          `json:"plan_id"`
	Day       json.RawMessage `json:"day"`
	MealIndex int             `json:"meal_index"`
	Meal      json.RawMessage `json:"meal"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
