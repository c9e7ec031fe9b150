package api

import (
	"database/sql"
	"net/http"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	categoriesHandler := &CategoriesHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	loansHandler := &LoansHandler{DB: db}
	messagesHandler := &MessagesHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret)

	// Public: registration, login, browsing.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/categories", categoriesHandler.List)
	mux.HandleFunc("GET /api/items/search", itemsHandler.Search)
	mux.HandleFunc("GET /api/items/{id}/images/{imageID}", itemsHandler.GetImage)
	mux.HandleFunc("GET /api/users/{id}", usersHandler.Get)
	mux.HandleFunc("GET /api/users/{id}/reviews", usersHandler.GetReviews)

	// Account.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("PUT /api/users/me", authMW(http.HandlerFunc(usersHandler.UpdateMe)))

	// Categories.
	mux.Handle("POST /api/categories", authMW(http.HandlerFunc(categoriesHandler.Create)))

	// Items. The static segments must be registered before GET /api/items/{id}.
	mux.Handle("GET /api/items/mine", authMW(http.HandlerFunc(itemsHandler.ListMine)))
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PATCH /api/items/{id}/availability", authMW(http.HandlerFunc(itemsHandler.SetAvailability)))
	mux.Handle("POST /api/items/{id}/images", authMW(http.HandlerFunc(itemsHandler.UploadImage)))
	mux.Handle("PUT /api/items/{id}/images/{imageID}/primary", authMW(http.HandlerFunc(itemsHandler.SetPrimaryImage)))
	mux.Handle("DELETE /api/items/{id}/images/{imageID}", authMW(http.HandlerFunc(itemsHandler.DeleteImage)))

	// Loans.
	mux.Handle("POST /api/loans", authMW(http.HandlerFunc(loansHandler.Create)))
	mux.Handle("GET /api/loans/borrowed", authMW(http.HandlerFunc(loansHandler.ListBorrowed)))
	mux.Handle("GET /api/loans/lent", authMW(http.HandlerFunc(loansHandler.ListLent)))
	mux.Handle("GET /api/loans/{id}", authMW(http.HandlerFunc(loansHandler.Get)))
	mux.Handle("PATCH /api/loans/{id}/status", authMW(http.HandlerFunc(loansHandler.Transition)))
	mux.Handle("POST /api/loans/{id}/reviews", authMW(http.HandlerFunc(loansHandler.CreateReview)))

	// Messages.
	mux.Handle("POST /api/items/{id}/messages", authMW(http.HandlerFunc(messagesHandler.Send)))
	mux.Handle("GET /api/items/{id}/messages", authMW(http.HandlerFunc(messagesHandler.Conversation)))
	mux.Handle("GET /api/messages/unread", authMW(http.HandlerFunc(messagesHandler.UnreadCount)))

	return mux
}
