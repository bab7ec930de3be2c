package http

import (
	"net/http"

	mw "github.com/beaconlabs/statuspage-backend/internal/adapters/primary/http/middleware"
	"github.com/beaconlabs/statuspage-backend/internal/auth"
)

// getClaims pulls the authenticated user's claims from the request context,
// writing a 401 response when they are missing.
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
