package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
	"signalscanner/src/strategy"
)

type strategyStore interface {
	Create(ctx context.Context, strat *model.Strategy) error
	FindByID(ctx context.Context, id uint) (*model.Strategy, error)
	FindActive(ctx context.Context) ([]model.Strategy, error)
	Update(ctx context.Context, strat *model.Strategy) error
	SetActive(ctx context.Context, id uint, active bool) error
}

func validHorizon(h model.Horizon) bool {
	switch h {
	case model.HorizonShort, model.HorizonMedium, model.HorizonLong:
		return true
	}
	return false
}

type strategyRequest struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	StrategyType    string        `json:"strategy_type"`
	Params          model.JSONMap `json:"params"`
	RiskRewardRatio float64       `json:"risk_reward_ratio"`
	Horizon         model.Horizon `json:"horizon"`
}

func (req *strategyRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if !validHorizon(req.Horizon) {
		return "horizon must be short, medium or long"
	}
	// A strategy row is only worth storing if the registry can build it.
	if _, err := strategy.New(req.StrategyType, req.Params, req.RiskRewardRatio); err != nil {
		return err.Error()
	}
	return ""
}

// CreateStrategyHandler registers a new strategy configuration.
func CreateStrategyHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req strategyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.RiskRewardRatio <= 0 {
			req.RiskRewardRatio = 2
		}
		if msg := req.validate(); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		strat := &model.Strategy{
			Name:            req.Name,
			Description:     req.Description,
			StrategyType:    req.StrategyType,
			Params:          req.Params,
			RiskRewardRatio: req.RiskRewardRatio,
			Horizon:         req.Horizon,
			Active:          true,
		}

		if err := repo.Create(r.Context(), strat); err != nil {
			logger.WithError(err).Error("failed to create strategy")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, strat)
	}
}

// ListStrategiesHandler returns the active strategies.
func ListStrategiesHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strategies, err := repo.FindActive(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list strategies")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if strategies == nil {
			strategies = []model.Strategy{}
		}
		writeJSON(w, http.StatusOK, strategies)
	}
}

// GetStrategyHandler returns one strategy by ID.
func GetStrategyHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		strat, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to fetch strategy")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if strat == nil {
			http.Error(w, "strategy not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, strat)
	}
}

// UpdateStrategyHandler rewrites a strategy's configuration.
func UpdateStrategyHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		strat, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to fetch strategy")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if strat == nil {
			http.Error(w, "strategy not found", http.StatusNotFound)
			return
		}

		var req strategyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.RiskRewardRatio <= 0 {
			req.RiskRewardRatio = strat.RiskRewardRatio
		}
		if msg := req.validate(); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		strat.Name = req.Name
		strat.Description = req.Description
		strat.StrategyType = req.StrategyType
		strat.Params = req.Params
		strat.RiskRewardRatio = req.RiskRewardRatio
		strat.Horizon = req.Horizon

		if err := repo.Update(r.Context(), strat); err != nil {
			logger.WithError(err).Error("failed to update strategy")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, strat)
	}
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetStrategyActiveHandler toggles whether scans evaluate the strategy.
func SetStrategyActiveHandler(repo strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var req setActiveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := repo.SetActive(r.Context(), id, req.Active); err != nil {
			logger.WithError(err).Error("failed to toggle strategy")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "active": req.Active})
	}
}
