package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/auth"
	"github.com/dukerupert/famorg/internal/chore"
	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/store"
	"github.com/dukerupert/famorg/internal/websocket"
)

type RewardHandler struct {
	rewards *store.RewardStore
	hub     chore.Broadcaster
	logger  *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, hub chore.Broadcaster, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type rewardRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Cost        model.Money `json:"cost"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, h.logger, apperr.Invalid("title_required", "title is required"))
		return
	}
	if req.Cost < 0 {
		writeError(w, h.logger, apperr.Invalid("invalid_cost", "cost must be >= 0"))
		return
	}

	reward, err := h.rewards.Create(req.Title, req.Description, req.Cost)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing == nil {
		writeError(w, h.logger, store.ErrRewardNotFound)
		return
	}
	if err := h.rewards.Delete(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type redeemResponse struct {
	Reward  *model.Reward `json:"reward"`
	Balance model.Money   `json:"balance"`
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID := auth.UserID(r.Context())

	reward, balance, err := h.rewards.Redeem(id, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("reward redeemed", "reward_id", reward.ID, "user_id", userID, "cost", reward.Cost)
	h.broadcast(websocket.RewardRedeemed(reward.ID, userID, reward.Cost))
	writeJSON(w, http.StatusOK, redeemResponse{Reward: reward, Balance: balance})
}
