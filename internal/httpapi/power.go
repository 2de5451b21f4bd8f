package httpapi

import (
	"net/http"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/saraatrapero/puerta-garaje/internal/garage/service"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type powerResponse struct {
	types.PowerState
	Schedule types.ChargeSchedule `json:"schedule"`
}

type chargeRequest struct {
	Requested *bool                 `json:"requested"`
	Schedule  *types.ChargeSchedule `json:"schedule,omitempty"`
}

type intercomRequest struct {
	Active bool `json:"active"`
}

type intercomResponse struct {
	Active bool `json:"active"`
	Busy   bool `json:"busy"`
}

func (s *Server) powerSnapshot() powerResponse {
	return powerResponse{PowerState: s.power.State(), Schedule: s.power.Schedule()}
}

func (s *Server) writePower(w http.ResponseWriter, r *http.Request) {
	p := s.powerSnapshot()
	if wantsProtobuf(r) {
		msg, err := powerToProto(p)
		if err != nil {
			s.internalError(w, "power proto", err)
			return
		}
		writeProto(w, http.StatusOK, msg)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	s.writePower(w, r)
}

// handleCharge is the manual charge override and schedule update. Either key
// may be sent alone. It accepts JSON or a protobuf Struct with the same keys.
func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if isProtobuf(r) {
		var st structpb.Struct
		if err := readProto(r, &st); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		var err error
		if req, err = chargeRequestFromProto(&st); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	} else if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if req.Requested == nil && req.Schedule == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", `one of "requested" or "schedule" is required`)
		return
	}
	if sc := req.Schedule; sc != nil {
		if sc.StartHour < 0 || sc.StartHour > 23 || sc.EndHour < 0 || sc.EndHour > 24 {
			writeError(w, http.StatusBadRequest, "invalid_schedule", "hours must be within 0..24")
			return
		}
		s.power.SetSchedule(*sc)
	}
	if req.Requested != nil {
		s.power.SetChargingRequested(*req.Requested)
		s.logger.Info("manual charge override", "requested", *req.Requested)
	}

	s.writePower(w, r)
}

func (s *Server) handleIntercom(w http.ResponseWriter, r *http.Request) {
	var req intercomRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	s.activity.Set(service.SourceIntercom, req.Active)
	writeJSON(w, http.StatusOK, intercomResponse{
		Active: s.activity.Active(service.SourceIntercom),
		Busy:   s.activity.Busy(),
	})
}
