package handler

import "net/http"

// VersionResponse identifies the running build.
type VersionResponse struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// HandleVersion returns the deployed service version.
func HandleVersion(service, version, environment string) http.HandlerFunc {
	resp := VersionResponse{
		Service:     service,
		Version:     version,
		Environment: environment,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, resp)
	}
}
