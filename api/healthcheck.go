package api

import (
	"net/http"

	"github.com/thisisjab/rulezilla/storage"
)

// healthCheckHandler reports OK when the rule store answers a one row listing.
func (s *server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.services.RuleStore.ListRules(r.Context(), storage.ListQuery{Limit: 1}); err != nil {
		s.logger.Error("rule store health check failed", "error", err)
		s.writeJson(w, http.StatusServiceUnavailable, apiResponse{ //nolint:errcheck
			Success: false,
			Message: "Rule store unavailable.",
		}, nil)
		return
	}

	s.writeJson(w, http.StatusOK, apiResponse{ //nolint:errcheck
		Success: true,
		Message: "OK",
	}, nil)
}
