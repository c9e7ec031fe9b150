package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/lendhub/lendhub/internal/model"
	"github.com/lendhub/lendhub/internal/store"
)

// UsersHandler handles user profile and review endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

// Get handles GET /api/users/{id}: a public profile with the review
// aggregate attached.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	user.AverageRating, user.ReviewsCount, err = store.UserRating(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get user rating")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// UpdateMe handles PUT /api/users/me.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		jsonError(w, http.StatusBadRequest, "first and last name required")
		return
	}

	if err := store.UpdateUserProfile(r.Context(), h.DB, claims.UserID, req.FirstName, req.LastName, req.Bio); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	user, _ := store.GetUser(r.Context(), h.DB, claims.UserID)
	jsonResponse(w, http.StatusOK, user)
}

// GetReviews handles GET /api/users/{id}/reviews.
func (h *UsersHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	reviews, err := store.ListReviewsForUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	jsonResponse(w, http.StatusOK, reviews)
}
