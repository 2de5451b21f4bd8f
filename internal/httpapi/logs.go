package httpapi

import (
	"net/http"
	"strconv"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

const defaultLogLimit = 50

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.logs.ListLogs(r.Context(), limit)
	if err != nil {
		s.internalError(w, "list logs", err)
		return
	}
	if entries == nil {
		entries = []types.AccessLog{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleLogSummary returns the last digest, generating one on demand when
// none exists yet or when ?refresh=1 is given.
func (s *Server) handleLogSummary(w http.ResponseWriter, r *http.Request) {
	if s.digest == nil {
		writeError(w, http.StatusNotFound, "digest_disabled", "log digest is not configured")
		return
	}

	d, ok := s.digest.Latest()
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh || !ok {
		var err error
		d, err = s.digest.Run(r.Context())
		if err != nil {
			s.internalError(w, "log digest", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, d)
}
