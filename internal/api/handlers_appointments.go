package api

import (
	"net/http"

	"localhire/internal/domain"
	"localhire/internal/service"

	"github.com/gorilla/mux"
)

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req service.BookRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	appt, err := s.svc.Appointments.Book(r.Context(), actorFrom(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Appointment Booked", envelope{"appointment": viewOf(appt)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, clientID, contractorID := q.Get("appointmentId"), q.Get("userId"), q.Get("contractorId")

	actor := actorFrom(r.Context())
	if !actor.IsAdmin() && actor.ID != clientID && actor.ID != contractorID {
		s.writeError(w, r, domain.ErrNotOwner)
		return
	}

	appt, err := s.svc.Appointments.Status(r.Context(), id, clientID, contractorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{
		"isCompleted":  appt.IsCompleted(),
		"hasBeenRated": appt.HasBeenRated,
		"status":       appt.Status,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	appt, err := s.svc.Appointments.Cancel(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Appointment Cancelled", envelope{"appointment": viewOf(appt)})
}

func (s *Server) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	file, closer, err := formFile(r, "proofImage")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if closer != nil {
		defer closer.Close()
	}
	if file == nil {
		file = &domain.File{}
	}

	appt, err := s.svc.Appointments.SubmitProof(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"], *file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Completion proof submitted", envelope{"appointment": viewOf(appt)})
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved *bool `json:"approved"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Approved == nil {
		s.writeError(w, r, domain.Validation("approved is required"))
		return
	}

	appt, err := s.svc.Appointments.DecideCompletion(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"], *req.Approved)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg := "Appointment sent back for revision"
	if *req.Approved {
		msg = "Appointment marked as completed"
	}
	writeOK(w, http.StatusOK, msg, envelope{"appointment": viewOf(appt)})
}

func (s *Server) handleMarkRated(w http.ResponseWriter, r *http.Request) {
	appt, err := s.svc.Appointments.MarkRated(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Appointment marked as rated", envelope{"appointment": viewOf(appt)})
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stars int `json:"stars"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.svc.Ratings.Submit(r.Context(), actorFrom(r.Context()), mux.Vars(r)["id"], req.Stars)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Rating submitted", envelope{"rating": summary})
}

func (s *Server) handleClientAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := s.svc.Appointments.ClientAppointments(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"appointments": viewsOf(appts)})
}

func (s *Server) handleContractorAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := s.svc.Appointments.ContractorAppointments(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"appointments": viewsOf(appts)})
}

func (s *Server) handleContractorDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Appointments.ContractorDashboard(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"dashData": d})
}
