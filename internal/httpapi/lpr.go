package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/saraatrapero/puerta-garaje/internal/garage/service"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type confirmRequest struct {
	UserID    string `json:"user_id"`
	Confirmed bool   `json:"confirmed"`
}

// lprDecision is the public view of a decision. The matched user is reduced
// to id and name; contact data stays behind the admin roster routes.
type lprDecision struct {
	Kind     types.DecisionKind `json:"decision"`
	Reason   types.DenyReason   `json:"reason,omitempty"`
	UserID   string             `json:"user_id,omitempty"`
	UserName string             `json:"user_name,omitempty"`
}

type lprResponse struct {
	Detected bool             `json:"detected"`
	Plate    string           `json:"plate,omitempty"`
	Decision *lprDecision     `json:"decision,omitempty"`
	Entry    *types.AccessLog `json:"entry,omitempty"`
	Opened   bool             `json:"opened"`
}

func toLPRResponse(res service.LPRResult) lprResponse {
	out := lprResponse{Detected: res.Detected, Plate: res.Plate, Entry: res.Entry, Opened: res.Opened}
	if d := res.Decision; d != nil {
		out.Decision = &lprDecision{Kind: d.Kind, Reason: d.Reason}
		if d.User != nil {
			out.Decision.UserID, out.Decision.UserName = d.User.ID, d.User.Name
		}
	}
	return out
}

// handleLPR takes a raw camera frame as the request body.
func (s *Server) handleLPR(w http.ResponseWriter, r *http.Request) {
	mimeType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "body must be an image/* frame")
		return
	}
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image_too_large", "image exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_body", "could not read image body")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "empty_image", "image body is empty")
		return
	}

	res, err := s.gate.ProcessImage(r.Context(), image, mimeType)
	if err != nil {
		s.doorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLPRResponse(res))
}

func (s *Server) handleLPRConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id is required")
		return
	}

	res, err := s.gate.Confirm(r.Context(), req.UserID, req.Confirmed)
	if err != nil {
		s.doorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLPRResponse(res))
}
