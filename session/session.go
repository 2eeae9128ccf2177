package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nutrition-target-api/nutrition"
)

const (
	keyMetrics  = "metrics"
	keyTarget   = "target"
	keyPlan     = "plan"
	keyDietType = "diet_type"
)

// Plan is the last plan the backend generated for a user.
type Plan struct {
	PlanID      string                    `json:"plan_id"`
	Plan        json.RawMessage           `json:"plan"`
	Target      nutrition.NutritionTarget `json:"target"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Session is a typed view over one user's values in a Store.
type Session struct {
	store  Store
	userID string
}

func New(store Store, userID string) *Session {
	return &Session{store: store, userID: userID}
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.store.Put(ctx, s.userID, key, data)
}

func (s *Session) get(ctx context.Context, key string, v any) error {
	data, err := s.store.Get(ctx, s.userID, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *Session) SaveMetrics(ctx context.Context, m nutrition.UserMetrics) error {
	return s.put(ctx, keyMetrics, m)
}

func (s *Session) LastMetrics(ctx context.Context) (nutrition.UserMetrics, error) {
	var m nutrition.UserMetrics
	err := s.get(ctx, keyMetrics, &m)
	return m, err
}

func (s *Session) SaveTarget(ctx context.Context, t nutrition.NutritionTarget) error {
	return s.put(ctx, keyTarget, t)
}

func (s *Session) LastTarget(ctx context.Context) (nutrition.NutritionTarget, error) {
	var t nutrition.NutritionTarget
	err := s.get(ctx, keyTarget, &t)
	return t, err
}

func (s *Session) SavePlan(ctx context.Context, p Plan) error {
	return s.put(ctx, keyPlan, p)
}

func (s *Session) LastPlan(ctx context.Context) (Plan, error) {
	var p Plan
	err := s.get(ctx, keyPlan, &p)
	return p, err
}

func (s *Session) SaveDietType(ctx context.Context, d nutrition.DietType) error {
	return s.put(ctx, keyDietType, d)
}

// DietType returns the stored diet type, or DietUnspecified if none was
// stored.
func (s *Session) DietType(ctx context.Context) (nutrition.DietType, error) {
	var d nutrition.DietType
	err := s.get(ctx, keyDietType, &d)
	if errors.Is(err, ErrNotFound) {
		return nutrition.DietUnspecified, nil
	}
	return d, err
}

// ClearDietType forgets the stored diet type.
func (s *Session) ClearDietType(ctx context.Context) error {
	return s.store.Delete(ctx, s.userID, keyDietType)
}

func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.userID)
}
