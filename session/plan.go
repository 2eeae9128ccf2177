package session

import (
	"encoding/json"
	"fmt"

	"nutrition-target-api/nutrition"
)

// Plans from the backend list their days under "days" or "daily_meals".
// Each day carries a "day" label and a "meals" array.
var dayListKeys = []string{"days", "daily_meals"}

// CheckMeal reports whether the plan has a meal at mealIndex on day.
func (p Plan) CheckMeal(day json.RawMessage, mealIndex int) error {
	var doc map[string]any
	if err := json.Unmarshal(p.Plan, &doc); err != nil {
		return fmt.Errorf("failed to decode plan %s: %w", p.PlanID, err)
	}
	_, err := locateMeals(doc, day, mealIndex)
	return err
}

// ReplaceMeal puts meal in place of the meal at mealIndex on day.
func (p *Plan) ReplaceMeal(day json.RawMessage, mealIndex int, meal json.RawMessage) error {
	var doc map[string]any
	if err := json.Unmarshal(p.Plan, &doc); err != nil {
		return fmt.Errorf("failed to decode plan %s: %w", p.PlanID, err)
	}
	meals, err := locateMeals(doc, day, mealIndex)
	if err != nil {
		return err
	}

	var m any
	if err := json.Unmarshal(meal, &m); err != nil {
		return fmt.Errorf("failed to decode meal: %w", err)
	}
	meals[mealIndex] = m

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode plan %s: %w", p.PlanID, err)
	}
	p.Plan = data
	return nil
}

// locateMeals returns the meals slice of the requested day. The slice shares
// its backing array with doc.
func locateMeals(doc map[string]any, day json.RawMessage, mealIndex int) ([]any, error) {
	var want any
	if err := json.Unmarshal(day, &want); err != nil || want == nil {
		return nil, &nutrition.InvalidInputError{Field: "day", Reason: "required"}
	}
	label := fmt.Sprint(want)

	var days []any
	for _, key := range dayListKeys {
		if list, ok := doc[key].([]any); ok {
			days = list
			break
		}
	}
	if len(days) == 0 {
		return nil, &nutrition.InvalidInputError{Field: "day", Reason: "plan has no days"}
	}

	var entry map[string]any
	for _, d := range days {
		if m, ok := d.(map[string]any); ok && m["day"] != nil && fmt.Sprint(m["day"]) == label {
			entry = m
			break
		}
	}
	// Unlabelled days are addressed by 1-based position.
	if n, ok := want.(float64); entry == nil && ok && n >= 1 && int(n) <= len(days) && n == float64(int(n)) {
		if m, ok := days[int(n)-1].(map[string]any); ok && m["day"] == nil {
			entry = m
		}
	}
	if entry == nil {
		return nil, &nutrition.InvalidInputError{Field: "day", Reason: fmt.Sprintf("no day %s in plan", label)}
	}

	meals, _ := entry["meals"].([]any)
	if mealIndex < 0 || mealIndex >= len(meals) {
		return nil, &nutrition.InvalidInputError{
			Field:  "meal_index",
			Reason: fmt.Sprintf("day %s has %d meals, got index %d", label, len(meals), mealIndex),
		}
	}
	return meals, nil
}
