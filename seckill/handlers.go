package seckill

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/QctheGithuber/seckillweb/seckill/domain"

	"github.com/go-chi/chi/v5"
)

// ClaimService e CatalogService são o mínimo que o adaptador precisa dos
// casos de uso; os concretos vivem em application.
type ClaimService interface {
	AttemptClaim(ctx context.Context, userID, resourceID int64) (domain.Grant, error)
}

type CatalogService interface {
	List(ctx context.Context) ([]domain.ResourceSnapshot, error)
	Get(ctx context.Context, resourceID int64) (domain.ResourceSnapshot, error)
	Create(ctx context.Context, name, description string, initialStock int64) (domain.Resource, error)
}

type Handler struct {
	Claims  ClaimService
	Catalog CatalogService

	// ClaimMiddleware, quando presente, envolve só a rota de claim (ex.:
	// rate limit por usuário). Nunca participa da correção da admissão.
	ClaimMiddleware func(http.Handler) http.Handler

	// AdminToken habilita a rota administrativa de criação de recurso.
	// Vazio = rota desligada. É um stub de fronteira, não um sistema de
	// autenticação.
	AdminToken string
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/resources", h.listResources)
	r.Get("/resources/{resourceID}", h.getResource)

	claims := chi.Router(r)
	if h.ClaimMiddleware != nil {
		claims = r.With(h.ClaimMiddleware)
	}
	claims.Post("/claims/{userID}/{resourceID}", h.attemptClaim)

	if h.AdminToken != "" {
		r.Post("/resources", h.createResource)
	}
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Catalog.List(r.Context())
	if err != nil {
		log.Printf("list resources failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list resources")
		return
	}
	if snaps == nil {
		snaps = []domain.ResourceSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *Handler) getResource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "resourceID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "resource id must be a positive integer")
		return
	}

	snap, err := h.Catalog.Get(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, "resource_not_found", "resource does not exist")
	case err != nil:
		log.Printf("get resource %d failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load resource")
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

type claimResponse struct {
	Status        string `json:"status"`
	ReservationID string `json:"reservation_id"`
	Remaining     int64  `json:"remaining"`
}

func (h *Handler) attemptClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(chi.URLParam(r, "userID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be a positive integer")
		return
	}
	resourceID, ok := parseID(chi.URLParam(r, "resourceID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "resource id must be a positive integer")
		return
	}

	grant, err := h.Claims.AttemptClaim(r.Context(), userID, resourceID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrResourceNotFound):
			writeError(w, http.StatusNotFound, "resource_not_found", "resource does not exist")
		case errors.Is(err, domain.ErrStoreUnavailable):
			log.Printf("claim user=%d resource=%d store unavailable: %v", userID, resourceID, err)
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "temporarily unavailable, retry later")
		default:
			log.Printf("claim user=%d resource=%d failed: %v", userID, resourceID, err)
			code := string(grant.Outcome)
			if code == "" {
				code = string(domain.OutcomeInternalError)
			}
			writeError(w, http.StatusInternalServerError, code, "internal error, retry later")
		}
		return
	}

	switch grant.Outcome {
	case domain.OutcomeGranted:
		writeJSON(w, http.StatusOK, claimResponse{
			Status:        "granted",
			ReservationID: grant.Reservation.ID.String(),
			Remaining:     grant.Remaining,
		})
	case domain.OutcomeStockExhausted:
		writeError(w, http.StatusConflict, "stock_exhausted", "stock exhausted")
	case domain.OutcomeDuplicateClaim:
		writeError(w, http.StatusConflict, "duplicate_claim", "already claimed")
	default:
		log.Printf("claim user=%d resource=%d unexpected outcome %q", userID, resourceID, grant.Outcome)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error, retry later")
	}
}

type createResourceRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	InitialStock int64  `json:"initial_stock"`
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Admin-Token") != h.AdminToken {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token")
		return
	}

	var req createResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "body must be valid JSON")
		return
	}

	res, err := h.Catalog.Create(r.Context(), req.Name, req.Description, req.InitialStock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_resource", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, domain.ResourceSnapshot{ID: res.ID, Name: res.Name, Count: res.Stock})
}
