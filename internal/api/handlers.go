package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/models"
	"assistance-workflow/internal/workflow"

	"github.com/gorilla/mux"
)

// ==========================
// Applications
// ==========================

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req workflow.SubmitRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	app, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleGetByReference(w http.ResponseWriter, r *http.Request) {
	app, err := s.svc.GetByReference(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type transitionBody struct {
	Action        workflow.Action `json:"action"`
	InterviewDate string          `json:"interviewDate,omitempty"`
	InterviewTime string          `json:"interviewTime,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var body transitionBody
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.svc.Transition(r.Context(), workflow.TransitionRequest{
		ApplicationID: mux.Vars(r)["id"],
		ActorID:       r.Header.Get(headerStaffID),
		Role:          staffRole(r.Header.Get(headerStaffRole)),
		Action:        body.Action,
		InterviewDate: body.InterviewDate,
		InterviewTime: body.InterviewTime,
		Reason:        body.Reason,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.svc.NotifyBeneficiary(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"applicationId": id, "status": "notified"})
}

// ==========================
// Signatures
// ==========================

func (s *Server) handleAttachSignature(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	role := staffRole(vars["role"])

	caller := strings.TrimSpace(r.Header.Get(headerStaffRole))
	if caller == "" {
		s.writeError(w, r, apperrors.NewForbiddenActionError("anonymous", "sign as "+string(role)))
		return
	}
	if staffRole(caller) != role {
		s.writeError(w, r, apperrors.NewForbiddenActionError(caller, "sign as "+string(role)))
		return
	}

	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.writeError(w, r, apperrors.NewValidationError("signature", err.Error()))
		return
	}

	if err := s.svc.AttachSignature(r.Context(), vars["id"], role, image); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, err := s.svc.GetSignature(r.Context(), vars["id"], staffRole(vars["role"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ==========================
// Dashboard
// ==========================

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, s.svc.Location())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var page *models.ApplicationPage
	if raw := r.URL.Query()["status"]; len(raw) > 0 {
		states := make([]models.Status, 0, len(raw))
		for _, v := range raw {
			states = append(states, models.Status(v))
		}
		page, err = s.svc.ListByState(r.Context(), states, filter)
	} else {
		page, err = s.svc.ListVisible(r.Context(), staffRole(r.Header.Get(headerStaffRole)), filter)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUrgent(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.ListUrgent(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.svc.CountByState(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make(map[string]int, len(counts))
	for st, n := range counts {
		out[string(st)] = n
	}
	writeJSON(w, http.StatusOK, out)
}

func parseFilter(r *http.Request, loc *time.Location) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{
		Search:      strings.TrimSpace(q.Get("search")),
		ServiceType: strings.TrimSpace(q.Get("serviceType")),
	}

	var err error
	if filter.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intParam(q.Get("pageSize"), "pageSize"); err != nil {
		return filter, err
	}
	if filter.UpdatedFrom, err = timeParam(q.Get("updatedFrom"), "updatedFrom", loc, false); err != nil {
		return filter, err
	}
	if filter.UpdatedTo, err = timeParam(q.Get("updatedTo"), "updatedTo", loc, true); err != nil {
		return filter, err
	}
	return filter, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.NewValidationError(name, fmt.Sprintf("%q is not a number", v))
	}
	return n, nil
}

// timeParam accepts RFC 3339 or a plain date. Plain dates are office-local
// days, and a plain upper bound covers the whole day.
func timeParam(v, name string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return nil, apperrors.NewValidationError(name, fmt.Sprintf("%q is not a date", v))
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// staffRole normalizes aliases; unknown values pass through so the service
// reports them as forbidden.
func staffRole(v string) models.Role {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == string(models.RoleClient) {
		return models.RoleClient
	}
	if role, err := models.ParseRole(v); err == nil {
		return role
	}
	return models.Role(v)
}

// ==========================
// Encoding
// ==========================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationError("body", err.Error())
	}
	return nil
}

type errorBody struct {
	Error *apperrors.StandardError `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	std := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(std.Code)
	if status < http.StatusBadRequest {
		// A failed side effect on its own is the whole result of the call.
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":  r.URL.Path,
			"code":  string(std.Code),
			"error": err.Error(),
		})
	}
	writeJSON(w, status, errorBody{Error: std})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
