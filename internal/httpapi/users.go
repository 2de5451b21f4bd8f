package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saraatrapero/puerta-garaje/internal/garage/service"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.roster.Users(r.Context())
	if err != nil {
		s.internalError(w, "list users", err)
		return
	}
	if users == nil {
		users = []types.AccessUser{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var u types.AccessUser
	if err := decodeJSON(r, &u, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	created, err := s.roster.AddUser(r.Context(), u)
	if err != nil {
		s.userError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleReplaceUser(w http.ResponseWriter, r *http.Request) {
	var u types.AccessUser
	if err := decodeJSON(r, &u, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	updated, err := s.roster.ReplaceUser(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		s.userError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.roster.RemoveUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.userError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) userError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, store.ErrDuplicatePlate):
		writeError(w, http.StatusConflict, "duplicate_plate", err.Error())
	case errors.Is(err, service.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid_name", err.Error())
	case errors.Is(err, service.ErrInvalidPlate):
		writeError(w, http.StatusBadRequest, "invalid_plate", err.Error())
	case errors.Is(err, service.ErrInvalidUserType):
		writeError(w, http.StatusBadRequest, "invalid_type", err.Error())
	case errors.Is(err, service.ErrValidityWindowRequired),
		errors.Is(err, service.ErrInvalidValidityWindow):
		writeError(w, http.StatusBadRequest, "invalid_validity_window", err.Error())
	default:
		s.internalError(w, "roster", err)
	}
}
