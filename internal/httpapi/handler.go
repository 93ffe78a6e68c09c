package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/lattiq/mailrelay/internal/core"
)

type upstreamResponse struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type sendResponse struct {
	Message  string            `json:"message"`
	Upstream *upstreamResponse `json:"upstream_response"`
}

type errorResponse struct {
	Error    string            `json:"error"`
	Field    string            `json:"field,omitempty"`
	Upstream *upstreamResponse `json:"upstream_response,omitempty"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var fields core.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body: " + err.Error()})
		return
	}

	email, err := core.NewEmail(fields)
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.sender.Send(r.Context(), email)
	if err == nil {
		writeJSON(w, responseStatus(result.StatusCode), sendResponse{
			Message:  result.Message,
			Upstream: upstream(result.UpstreamStatus, result.UpstreamBody),
		})
		return
	}

	var de *core.DeliveryError
	if errors.As(err, &de) {
		writeJSON(w, responseStatus(de.StatusCode), errorResponse{
			Error:    de.Message,
			Upstream: upstream(de.UpstreamStatus, de.UpstreamBody),
		})
		return
	}

	hlog.FromRequest(r).Error().Err(err).Msg("send failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	if s.version == nil {
		writeJSON(w, http.StatusOK, map[string]string{"version": "unknown"})
		return
	}
	writeJSON(w, http.StatusOK, s.version)
}

// responseStatus maps an outcome status onto one that can carry a body.
// 1xx, 3xx and out of range codes become 502; upstream_response keeps the
// original value.
func responseStatus(status int) int {
	if status < 200 || status > 599 || (status >= 300 && status <= 399) {
		return http.StatusBadGateway
	}
	return status
}

// upstream echoes a JSON body as is and any other body as a JSON string.
func upstream(status int, body string) *upstreamResponse {
	data := json.RawMessage(body)
	if body == "" || !json.Valid(data) {
		quoted, _ := json.Marshal(body)
		data = quoted
	}
	return &upstreamResponse{Status: status, Data: data}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
