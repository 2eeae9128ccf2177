// Package planclient calls the meal plan generation backend.
package planclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutrition-target-api/nutrition"
)

// ErrBackend wraps every non-2xx answer from the backend.
var ErrBackend = errors.New("plan backend error")

// Profile is the free-form preference block sent with a plan request.
type Profile struct {
	DietPref  string   `json:"diet_pref,omitempty"`
	Allergies []string `json:"allergies"`
	Goal      string   `json:"goal,omitempty"`
	DietType  string   `json:"diet_type,omitempty"`
}

// PlanRequest is the body of POST /api/generate-plan.
type PlanRequest struct {
	Calories int              `json:"calories"`
	Macros   nutrition.Macros `json:"macros"`
	Profile  Profile          `json:"profile"`
}

// PlanResponse is the backend's answer. Plan is passed through untouched.
type PlanResponse struct {
	Plan   json.RawMessage `json:"plan"`
	PlanID string          `json:"plan_id"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// Client talks to the plan backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NewRequest builds a plan request from a computed target.
func NewRequest(t nutrition.NutritionTarget, p Profile) PlanRequest {
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	return PlanRequest{Calories: t.DailyCalories, Macros: t.Macros, Profile: p}
}

// SwapRequest is the body of POST /api/swap-meal. Day is passed through as
// the plan labels it (a number or a name).
type SwapRequest struct {
	PlanID    string          `json:"plan_id"`
	Day       json.RawMessage `json:"day"`
	MealIndex int             `json:"meal_index"`
	Profile   Profile         `json:"profile"`
}

// SwapResponse carries the replacement meal. Backends answer with either
// new_meal or alternative_meal.
type SwapResponse struct {
	NewMeal         json.RawMessage `json:"new_meal,omitempty"`
	AlternativeMeal json.RawMessage `json:"alternative_meal,omitempty"`
}

// Meal returns whichever replacement the backend sent.
func (r *SwapResponse) Meal() json.RawMessage {
	if len(r.NewMeal) > 0 && string(r.NewMeal) != "null" {
		return r.NewMeal
	}
	if len(r.AlternativeMeal) > 0 && string(r.AlternativeMeal) != "null" {
		return r.AlternativeMeal
	}
	return nil
}

// GeneratePlan asks the backend for a meal plan matching req.
func (c *Client) GeneratePlan(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	var out PlanResponse
	if err := c.post(ctx, "/api/generate-plan", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SwapMeal asks the backend for a replacement for one meal of a plan.
func (c *Client) SwapMeal(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	if req.Profile.Allergies == nil {
		req.Profile.Allergies = []string{}
	}
	var out SwapResponse
	if err := c.post(ctx, "/api/swap-meal", req, &out); err != nil {
		return nil, err
	}
	if out.Meal() == nil {
		return nil, fmt.Errorf("%w: swap response carries no meal", ErrBackend)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("plan backend request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("plan backend responded",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Detail != "" {
			return fmt.Errorf("%w: %d: %s", ErrBackend, resp.StatusCode, eb.Detail)
		}
		return fmt.Errorf("%w: status %d", ErrBackend, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}
