package api

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/lendhub/lendhub/internal/model"
	"github.com/lendhub/lendhub/internal/store"
)

// LoansHandler handles loan lifecycle and review endpoints.
type LoansHandler struct {
	DB *sql.DB
}

type createLoanRequest struct {
	ItemID    int64  `json:"item_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Notes     string `json:"notes"`
}

type transitionRequest struct {
	Action string `json:"action"`
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Create handles POST /api/loans: a borrower requests a loan.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid end_date")
		return
	}

	loan, err := store.CreateLoan(r.Context(), h.DB, req.ItemID, claims.UserID, start, end, req.Notes)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, loan)
}

// Get handles GET /api/loans/{id}; only the two participants may see a loan.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.GetLoan(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get loan")
		return
	}
	if loan == nil {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}
	if claims.UserID != loan.BorrowerID && claims.UserID != loan.LenderID {
		jsonError(w, http.StatusForbidden, "not a loan participant")
		return
	}

	jsonResponse(w, http.StatusOK, loan)
}

// ListBorrowed handles GET /api/loans/borrowed.
func (h *LoansHandler) ListBorrowed(w http.ResponseWriter, r *http.Request) {
	h.listLoans(w, r, store.ListLoansByBorrower)
}

// ListLent handles GET /api/loans/lent.
func (h *LoansHandler) ListLent(w http.ResponseWriter, r *http.Request) {
	h.listLoans(w, r, store.ListLoansByLender)
}

func (h *LoansHandler) listLoans(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, db *sql.DB, userID int64) ([]model.Loan, error)) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	loans, err := list(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Transition handles PATCH /api/loans/{id}/status: approve, reject, cancel,
// activate or complete, acted by the authenticated user.
func (h *LoansHandler) Transition(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := store.TransitionLoan(r.Context(), h.DB, id, req.Action, claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, loan)
}

// CreateReview handles POST /api/loans/{id}/reviews.
func (h *LoansHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := store.CreateReview(r.Context(), h.DB, id, claims.UserID, req.Rating, req.Comment)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, review)
}
