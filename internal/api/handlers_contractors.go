package api

import (
	"net/http"
	"strconv"
	"strings"

	"localhire/internal/domain"
	"localhire/internal/models"
	"localhire/internal/service"

	"github.com/gorilla/mux"
)

func (s *Server) handleListContractors(w http.ResponseWriter, r *http.Request) {
	contractors, err := s.svc.Contractors.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"contractors": contractors})
}

func (s *Server) handleGetContractor(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.Contractors.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"contractor": profile})
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	days, err := s.svc.Contractors.Slots(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{"days": days})
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	rating, err := s.svc.Ratings.Get(r.Context(), mux.Vars(r)["contractorId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", envelope{
		"rating":        rating,
		"averageRating": rating.Average(),
	})
}

func (s *Server) handleSetRating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalRating  int64 `json:"totalRating"`
		TotalReviews int64 `json:"totalReviews"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rating := &models.Rating{
		ContractorID: mux.Vars(r)["contractorId"],
		TotalRating:  req.TotalRating,
		TotalReviews: req.TotalReviews,
	}
	if err := s.svc.Ratings.Set(r.Context(), rating); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Rating updated", envelope{"rating": rating, "averageRating": rating.Average()})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}

	app := service.SignupApplication{
		Name:       r.FormValue("name"),
		Age:        r.FormValue("age"),
		Contact:    r.FormValue("contact"),
		Address:    r.FormValue("address"),
		Email:      r.FormValue("email"),
		Speciality: r.FormValue("speciality"),
		Degree:     r.FormValue("degree"),
		Experience: r.FormValue("experience"),
		Rate:       r.FormValue("rate"),
	}
	var err error
	if app.ProofFile, err = formAttachment(r, "proofFile"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if app.GovIDFile, err = formAttachment(r, "govIdFile"); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Signup.Apply(r.Context(), app); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Signup sent successfully!", nil)
}

func (s *Server) handleAddContractor(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}

	fees, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("fees")), 64)
	if err != nil {
		s.writeError(w, r, domain.Validation("fees must be a number"))
		return
	}
	c := &models.Contractor{
		Name:       r.FormValue("name"),
		Email:      r.FormValue("email"),
		Speciality: r.FormValue("speciality"),
		Degree:     r.FormValue("degree"),
		Experience: r.FormValue("experience"),
		About:      r.FormValue("about"),
		Fees:       fees,
		Address:    r.FormValue("address"),
	}

	image, closer, err := formFile(r, "image")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	if err := s.svc.Contractors.Add(r.Context(), c, image); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Contractor Added", envelope{"contractor": c})
}

func (s *Server) handleToggleAvailability(w http.ResponseWriter, r *http.Request) {
	available, err := s.svc.Contractors.ToggleAvailability(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Availability Changed", envelope{"available": available})
}
