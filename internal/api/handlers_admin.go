package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"localhire/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func adminFilter(r *http.Request) (models.AppointmentFilter, error) {
	q := r.URL.Query()
	f := models.AppointmentFilter{
		ClientID:     q.Get("clientId"),
		ContractorID: q.Get("contractorId"),
		Status:       models.AppointmentStatus(q.Get("status")),
	}
	var err error
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) handleAdminAppointments(w http.ResponseWriter, r *http.Request) {
	filter, err := adminFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	appts, err := s.svc.Appointments.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"appointments": viewsOf(appts)})
}

func (s *Server) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	appts, err := s.svc.Appointments.PendingApprovals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"appointments": viewsOf(appts)})
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Appointments.AdminDashboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"dashData": d})
}

// handleExport buffers the workbook so failures can still be reported as JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := adminFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.svc.Appointments.ExportAppointments(r.Context(), &buf, filter); err != nil {
		s.writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("appointments_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
