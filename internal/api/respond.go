package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"localhire/internal/domain"
	"localhire/internal/models"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, statusCode int, message string, data envelope) {
	if data == nil {
		data = envelope{}
	}
	data["success"] = true
	if message != "" {
		data["message"] = message
	}
	writeJSON(w, statusCode, data)
}

func writeFail(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, envelope{"success": false, "message": message})
}

// writeError maps err to a status by kind. Unclassified errors are logged and
// hidden behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := domain.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeFail(w, status, domain.PublicMessage(err))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Validation("request body is required")
		}
		return domain.Validation(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// appointmentView adds the derived flags clients expect next to the status.
type appointmentView struct {
	*models.Appointment
	IsCompleted bool `json:"isCompleted"`
	Cancelled   bool `json:"cancelled"`
}

func viewOf(a *models.Appointment) appointmentView {
	return appointmentView{Appointment: a, IsCompleted: a.IsCompleted(), Cancelled: a.Cancelled()}
}

func viewsOf(appts []*models.Appointment) []appointmentView {
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, viewOf(a))
	}
	return out
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.Validation(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}
