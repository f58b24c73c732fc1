package core

import (
	"net/http"
)

// livenessBody is the plain-text response for the root liveness endpoint.
// The storefront's deployment tooling polls GET / and expects a plain string.
const livenessBody = "paygate is running"

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HandleLiveness serves GET / as a plain-text liveness probe. PayGate holds
// no local state and opens no connections at startup, so liveness is simply
// "the process is serving".
func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(livenessBody))
}

// HandleHealth serves GET /health with build metadata. There are no local
// dependencies to probe; Stripe reachability is deliberately not checked
// here to keep the endpoint cheap for load balancers.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "healthy",
		Version: s.Config.Build.Version,
	}
	JSON(w, r, http.StatusOK, resp)
}
