package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nutrition-target-api/auth"
	"nutrition-target-api/nutrition"
	"nutrition-target-api/planclient"
	"nutrition-target-api/session"
)

var errBodyTooLarge = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)

// writeJSON encodes v before touching the response so an unencodable value
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return fmt.Errorf("failed to encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
	return nil
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.logger.Error("response not sent", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inv *nutrition.InvalidInputError
	switch {
	case errors.As(err, &inv):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: inv.Error(), Field: inv.Field})
	case errors.Is(err, errBodyTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, planclient.ErrBackend):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var inv *nutrition.InvalidInputError
		if errors.As(err, &inv) {
			return inv
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return &nutrition.InvalidInputError{Field: "body", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// resolveProfile picks the macro profile for a request: an explicit profile
// name wins, otherwise the basis selects the goal or diet table.
func resolveProfile(name, basis string, m nutrition.UserMetrics) (nutrition.MacroProfile, error) {
	if name != "" {
		return nutrition.LookupProfile(name)
	}
	switch basis {
	case "", macroBasisGoal:
		return nutrition.GoalProfile(m.Goal), nil
	case macroBasisDietType:
		return nutrition.DietProfile(m.DietType)
	}
	return nutrition.MacroProfile{}, &nutrition.InvalidInputError{
		Field:  "macro_basis",
		Reason: fmt.Sprintf("must be %q or %q, got %q", macroBasisGoal, macroBasisDietType, basis),
	}
}

func breakdownFor(req TargetRequest) (nutrition.Breakdown, error) {
	p, err := resolveProfile(req.MacroProfile, req.MacroBasis, req.UserMetrics)
	if err != nil {
		return nutrition.Breakdown{}, err
	}
	return nutrition.ComputeBreakdown(req.UserMetrics, p)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) computeTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := breakdownFor(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, b)
}

func (s *Server) computeMacros(w http.ResponseWriter, r *http.Request) {
	var req MacrosRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Calories <= 0 {
		s.writeError(w, r, &nutrition.InvalidInputError{Field: "calories", Reason: "must be positive"})
		return
	}
	name := req.MacroProfile
	if name == "" {
		name = nutrition.ProfilePlanBalanced
	}
	p, err := nutrition.LookupProfile(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, MacrosResponse{
		Calories: req.Calories,
		Macros:   nutrition.ComputeMacros(req.Calories, p),
		Profile:  p,
	})
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, nutrition.Profiles())
}

func (s *Server) computeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if len(req.Items) > maxBatchItems {
		s.writeError(w, r, &nutrition.InvalidInputError{
			Field:  "items",
			Reason: fmt.Sprintf("at most %d per request, got %d", maxBatchItems, len(req.Items)),
		})
		return
	}

	results := make([]BatchResult, len(req.Items))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.batchWorkers)
	for i, item := range req.Items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := breakdownFor(item)
			if err != nil {
				var inv *nutrition.InvalidInputError
				if errors.As(err, &inv) {
					results[i] = BatchResult{Error: inv.Error(), Field: inv.Field}
					return nil
				}
				return err
			}
			results[i] = BatchResult{Breakdown: &b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respond(w, r, http.StatusOK, BatchResponse{Results: results})
}

func (s *Server) sessionFor(r *http.Request) *session.Session {
	userID, _ := auth.UserID(r.Context())
	return session.New(s.store, userID)
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.sessionFor(r).LastMetrics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, m)
}

func (s *Server) putMetrics(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := breakdownFor(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess := s.sessionFor(r)
	ctx := r.Context()
	if err := sess.SaveMetrics(ctx, req.UserMetrics); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SaveTarget(ctx, b.Target); err != nil {
		s.writeError(w, r, err)
		return
	}
	// New metrics replace the diet type too, so a PUT without one forgets
	// the old value.
	if req.DietType != nutrition.DietUnspecified {
		err = sess.SaveDietType(ctx, req.DietType)
	} else {
		err = sess.ClearDietType(ctx)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Debug("session metrics stored",
		zap.String("user_id", sess.UserID()),
		zap.Int("calories", b.Target.DailyCalories),
	)
	s.respond(w, r, http.StatusOK, b)
}

func (s *Server) getTarget(w http.ResponseWriter, r *http.Request) {
	t, err := s.sessionFor(r).LastTarget(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, t)
}

func (s *Server) generatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	sess := s.sessionFor(r)

	var metrics nutrition.UserMetrics
	if req.Metrics != nil {
		metrics = *req.Metrics
	} else {
		stored, err := sess.LastMetrics(ctx)
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, r, &nutrition.InvalidInputError{Field: "metrics", Reason: "required when none are stored"})
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		metrics = stored
	}
	if metrics.DietType == nutrition.DietUnspecified {
		d, err := sess.DietType(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		metrics.DietType = d
	}

	b, err := breakdownFor(TargetRequest{UserMetrics: metrics, MacroProfile: req.MacroProfile, MacroBasis: req.MacroBasis})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.plans.GeneratePlan(ctx, planclient.NewRequest(b.Target, planclient.Profile{
		DietPref:  req.DietPref,
		Allergies: req.Allergies,
		Goal:      metrics.Goal.String(),
		DietType:  metrics.DietType.String(),
	}))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	plan := session.Plan{
		PlanID:      resp.PlanID,
		Plan:        resp.Plan,
		Target:      b.Target,
		GeneratedAt: time.Now().UTC(),
	}
	if plan.PlanID == "" {
		plan.PlanID = uuid.NewString()
	}
	if err := sess.SaveMetrics(ctx, metrics); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SaveTarget(ctx, b.Target); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SavePlan(ctx, plan); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("plan generated",
		zap.String("user_id", sess.UserID()),
		zap.String("plan_id", plan.PlanID),
		zap.Int("calories", b.Target.DailyCalories),
	)
	s.respond(w, r, http.StatusOK, PlanResponse{
		PlanID:   plan.PlanID,
		Plan:     plan.Plan,
		Calories: b.Target.DailyCalories,
		Macros:   b.Target.Macros,
	})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.sessionFor(r).LastPlan(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, p)
}

func (s *Server) swapMeal(w http.ResponseWriter, r *http.Request) {
	var req SwapMealRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	sess := s.sessionFor(r)

	plan, err := sess.LastPlan(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := plan.CheckMeal(req.Day, req.MealIndex); err != nil {
		s.writeError(w, r, err)
		return
	}

	profile := planclient.Profile{DietPref: req.DietPref, Allergies: req.Allergies}
	if m, err := sess.LastMetrics(ctx); err == nil {
		profile.Goal = m.Goal.String()
		profile.DietType = m.DietType.String()
	} else if !errors.Is(err, session.ErrNotFound) {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.plans.SwapMeal(ctx, planclient.SwapRequest{
		PlanID:    plan.PlanID,
		Day:       req.Day,
		MealIndex: req.MealIndex,
		Profile:   profile,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	meal := resp.Meal()
	if err := plan.ReplaceMeal(req.Day, req.MealIndex, meal); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.SavePlan(ctx, plan); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("meal swapped",
		zap.String("user_id", sess.UserID()),
		zap.String("plan_id", plan.PlanID),
		zap.ByteString("day", req.Day),
		zap.Int("meal_index", req.MealIndex),
	)
	s.respond(w, r, http.StatusOK, SwapMealResponse{
		PlanID:    plan.PlanID,
		Day:       req.Day,
		MealIndex: req.MealIndex,
		Meal:      meal,
	})
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessionFor(r).Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
