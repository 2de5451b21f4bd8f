package httpapi

import (
	"errors"
	"net/http"

	"github.com/saraatrapero/puerta-garaje/internal/garage/service"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type openRequest struct {
	Operator string       `json:"operator"`
	Method   types.Method `json:"method"`
}

type commandResponse struct {
	Accepted bool             `json:"accepted"`
	Entry    *types.AccessLog `json:"entry,omitempty"`
	Status   types.DoorStatus `json:"status"`
}

func (s *Server) handleDoorStatus(w http.ResponseWriter, r *http.Request) {
	st := s.gate.Status()
	if wantsProtobuf(r) {
		msg, err := doorStatusToProto(st)
		if err != nil {
			s.internalError(w, "door status proto", err)
			return
		}
		writeProto(w, http.StatusOK, msg)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDoorOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if req.Operator == "" {
		req.Operator, _, _ = r.BasicAuth()
	}
	if req.Method == "" {
		req.Method = types.MethodAdmin
	}
	if !req.Method.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_method", "method must be LPR, MANUAL, BLUETOOTH or ADMIN")
		return
	}

	entry, opened, err := s.gate.Open(r.Context(), req.Operator, req.Method)
	if err != nil {
		s.doorError(w, err)
		return
	}
	resp := commandResponse{Accepted: opened, Status: s.gate.Status()}
	if opened {
		resp.Entry = &entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDoorClose(w http.ResponseWriter, r *http.Request) {
	accepted, err := s.gate.Close(r.Context())
	if err != nil {
		s.doorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Accepted: accepted, Status: s.gate.Status()})
}

func (s *Server) handleDoorStop(w http.ResponseWriter, r *http.Request) {
	s.gate.Stop(r.Context())
	writeJSON(w, http.StatusOK, commandResponse{Accepted: true, Status: s.gate.Status()})
}

func (s *Server) doorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrObstructed):
		writeError(w, http.StatusConflict, "obstructed", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, service.ErrNoPendingAuth):
		writeError(w, http.StatusConflict, "no_pending_auth", err.Error())
	default:
		s.internalError(w, "door command", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
}
