package rest

import (
	"net/http"

	"github.com/abcfe/abcfe-metadata/api"
	"github.com/abcfe/abcfe-metadata/storage"
	"github.com/gorilla/mux"
)

func setupRouter(db *storage.DB, wsHub *api.WSHub, limiter *RateLimiter, maxBody int64) http.Handler {
	r := mux.NewRouter()

	// Middleware setup
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Base route
	r.HandleFunc("/", HomeHandler(wsHub)).Methods("GET")
	r.HandleFunc("/stats", GetStats(db, wsHub)).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", api.HandleWebSocket(wsHub))

	// Metadata entries, one per address. Entries are superseded, never deleted.
	// Registered on the root router so an unsupported method is 405, not 404.
	limit := RateLimitMiddleware(limiter)
	r.Handle("/metadata/{address}", limit(GetMetadata(db))).Methods("GET")
	r.Handle("/metadata/{address}", limit(PutMetadata(db, wsHub, maxBody))).Methods("PUT")
	r.Handle("/metadata/{address}/magic", limit(GetMagicHash(db))).Methods("GET")

	r.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowedHandler)

	return r
}
