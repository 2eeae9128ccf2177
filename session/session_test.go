package session

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-target-api/nutrition"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "u1", "k")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "u1", "k", []byte("v1")))
			require.NoError(t, s.Put(ctx, "u1", "k", []byte("v2")))
			require.NoError(t, s.Put(ctx, "u2", "k", []byte("other")))

			got, err := s.Get(ctx, "u1", "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)

			require.NoError(t, s.Delete(ctx, "u1", "k"))
			_, err = s.Get(ctx, "u1", "k")
			assert.ErrorIs(t, err, ErrNotFound)

			got, err = s.Get(ctx, "u2", "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("other"), got)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "u1", "a", []byte("1")))
			require.NoError(t, s.Put(ctx, "u1", "b", []byte("2")))
			require.NoError(t, s.Put(ctx, "u2", "a", []byte("3")))

			require.NoError(t, s.Clear(ctx, "u1"))

			_, err := s.Get(ctx, "u1", "a")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Get(ctx, "u1", "b")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Get(ctx, "u2", "a")
			assert.NoError(t, err)
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	s, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "u1", "k", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "u1", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
	assert.Equal(t, path, s.Path())
}

func TestSession_TypedValues(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess := New(s, "user@example.com")

			_, err := sess.LastMetrics(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			metrics := nutrition.UserMetrics{
				HeightCm: 160, WeightKg: 55, AgeYears: 30,
				Sex: nutrition.Female, ActivityLevel: nutrition.Sedentary, Goal: nutrition.LoseWeight,
			}
			require.NoError(t, sess.SaveMetrics(ctx, metrics))
			gotMetrics, err := sess.LastMetrics(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(metrics, gotMetrics); diff != "" {
				t.Errorf("metrics mismatch (-want +got):\n%s", diff)
			}

			target, err := nutrition.ComputeNutritionTarget(metrics)
			require.NoError(t, err)
			require.NoError(t, sess.SaveTarget(ctx, target))
			gotTarget, err := sess.LastTarget(ctx)
			require.NoError(t, err)
			assert.Equal(t, target, gotTarget)

			plan := Plan{
				PlanID:      "plan-1",
				Plan:        json.RawMessage(`{"meals":[]}`),
				Target:      target,
				GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			}
			require.NoError(t, sess.SavePlan(ctx, plan))
			gotPlan, err := sess.LastPlan(ctx)
			require.NoError(t, err)
			assert.Equal(t, plan.PlanID, gotPlan.PlanID)
			assert.JSONEq(t, string(plan.Plan), string(gotPlan.Plan))
			assert.True(t, plan.GeneratedAt.Equal(gotPlan.GeneratedAt))

			d, err := sess.DietType(ctx)
			require.NoError(t, err)
			assert.Equal(t, nutrition.DietUnspecified, d)
			require.NoError(t, sess.SaveDietType(ctx, nutrition.Athlete))
			d, err = sess.DietType(ctx)
			require.NoError(t, err)
			assert.Equal(t, nutrition.Athlete, d)
			require.NoError(t, sess.ClearDietType(ctx))
			d, err = sess.DietType(ctx)
			require.NoError(t, err)
			assert.Equal(t, nutrition.DietUnspecified, d)

			require.NoError(t, sess.Clear(ctx))
			_, err = sess.LastTarget(ctx)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
