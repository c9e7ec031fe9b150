package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/lendhub/lendhub/internal/imaging"
	"github.com/lendhub/lendhub/internal/model"
	"github.com/lendhub/lendhub/internal/store"
)

// ItemsHandler handles item listing endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type itemRequest struct {
	CategoryID      int64   `json:"category_id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	ConditionRating int     `json:"condition_rating"`
	DailyRateCents  int64   `json:"daily_rate_cents"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Address         string  `json:"address"`
}

func (req *itemRequest) input() store.ItemInput {
	return store.ItemInput{
		CategoryID:      req.CategoryID,
		Title:           req.Title,
		Description:     req.Description,
		ConditionRating: req.ConditionRating,
		DailyRateCents:  req.DailyRateCents,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Address:         req.Address,
	}
}

// Search handles GET /api/items/search. All filters are optional query
// parameters; page defaults to 1 and limit to 20.
func (h *ItemsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := store.SearchFilters{
		Query:         q.Get("search"),
		AvailableOnly: q.Get("is_available") == "true",
	}

	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		filters.CategoryID = id
	}
	if v := q.Get("min_price_cents"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid min_price_cents")
			return
		}
		filters.MinPriceCents = &n
	}
	if v := q.Get("max_price_cents"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid max_price_cents")
			return
		}
		filters.MaxPriceCents = &n
	}
	if v := q.Get("condition_rating"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid condition_rating")
			return
		}
		filters.MinCondition = n
	}

	latStr, lngStr := q.Get("location_lat"), q.Get("location_lng")
	if latStr != "" || lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			jsonError(w, http.StatusBadRequest, "invalid location coordinates")
			return
		}
		radius := 10.0
		if v := q.Get("radius"); v != "" {
			radius, latErr = strconv.ParseFloat(v, 64)
			if latErr != nil || radius <= 0 {
				jsonError(w, http.StatusBadRequest, "invalid radius")
				return
			}
		}
		filters.Latitude = &lat
		filters.Longitude = &lng
		filters.RadiusKm = radius
	}

	page, limit := 1, 20
	if v := q.Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	result, err := store.SearchItems(r.Context(), h.DB, filters, page, limit)
	if err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID, req.input())
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItemDetails(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// ListMine handles GET /api/items/mine.
func (h *ItemsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	items, err := store.ListItemsByOwner(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, id, claims.UserID, req.input())
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id, claims.UserID); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// SetAvailability handles PATCH /api/items/{id}/availability: the owner's
// manual on/off switch, rejected while a loan holds the item.
func (h *ItemsHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req struct {
		IsAvailable bool `json:"is_available"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetItemAvailability(r.Context(), h.DB, id, claims.UserID, req.IsAvailable); err != nil {
		storeError(w, err)
		return
	}

	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles POST /api/items/{id}/images.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	processed, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := store.AddItemImage(r.Context(), h.DB, id, claims.UserID, processed.Data, processed.MIME)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, img)
}

// GetImage handles GET /api/items/{id}/images/{imageID}.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	imageID, err := strconv.ParseInt(r.PathValue("imageID"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	data, mime, err := store.GetItemImageData(r.Context(), h.DB, id, imageID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// SetPrimaryImage handles PUT /api/items/{id}/images/{imageID}/primary.
func (h *ItemsHandler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	imageID, err := strconv.ParseInt(r.PathValue("imageID"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := store.SetPrimaryImage(r.Context(), h.DB, id, imageID, claims.UserID); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "primary image updated"})
}

// DeleteImage handles DELETE /api/items/{id}/images/{imageID}.
func (h *ItemsHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	imageID, err := strconv.ParseInt(r.PathValue("imageID"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := store.DeleteItemImage(r.Context(), h.DB, id, imageID, claims.UserID); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image deleted"})
}
