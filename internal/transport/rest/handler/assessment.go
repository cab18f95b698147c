package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"plantdoc/internal/service"
	"plantdoc/internal/wizard"

	"github.com/gorilla/mux"
)

// AssessmentHandler exposes the caller's wizard
type AssessmentHandler struct {
	svc *service.AssessmentService
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(svc *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{svc: svc}
}

type intentError struct {
	Error string      `json:"error"`
	Kind  string      `json:"kind,omitempty"`
	View  wizard.View `json:"view"`
}

// writeIntent answers an intent with the resulting view, or the error plus
// the view the wizard settled in
func writeIntent(w http.ResponseWriter, v wizard.View, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}
	body := intentError{Error: err.Error(), View: v}
	var werr *wizard.Error
	if errors.As(err, &werr) {
		body.Error = werr.Message
		body.Kind = string(werr.Kind)
	}
	writeJSON(w, statusFor(err), body)
}

// Get handles GET /v1/assessment
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.View(r.Context(), caller(r)))
}

// Plants handles GET /v1/assessment/plants?q=&refresh=
func (h *AssessmentHandler) Plants(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	plants, err := h.svc.Plants(r.Context(), caller(r), r.URL.Query().Get("q"), refresh)
	if err != nil {
		var werr *wizard.Error
		if errors.As(err, &werr) {
			writeJSON(w, statusFor(err), map[string]string{"error": werr.Message, "kind": string(werr.Kind)})
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plants)
}

// SelectPlant handles POST /v1/assessment/plants/{id}/select
func (h *AssessmentHandler) SelectPlant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plant type id")
		return
	}
	v, err := h.svc.SelectPlant(r.Context(), caller(r), id)
	writeIntent(w, v, err)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// Answer handles POST /v1/assessment/answer
func (h *AssessmentHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.svc.Answer(r.Context(), caller(r), req.Answer)
	writeIntent(w, v, err)
}

// Edit handles POST /v1/assessment/edit/{index}
func (h *AssessmentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question index")
		return
	}
	v, err := h.svc.Edit(r.Context(), caller(r), i)
	writeIntent(w, v, err)
}

func (h *AssessmentHandler) Continue(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Continue(r.Context(), caller(r))
	writeIntent(w, v, err)
}

func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Submit(r.Context(), caller(r))
	writeIntent(w, v, err)
}

func (h *AssessmentHandler) Back(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Back(r.Context(), caller(r))
	writeIntent(w, v, err)
}

func (h *AssessmentHandler) ConfirmDiscard(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ConfirmDiscard(r.Context(), caller(r))
	writeIntent(w, v, err)
}

func (h *AssessmentHandler) CancelDiscard(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.CancelDiscard(r.Context(), caller(r))
	writeIntent(w, v, err)
}

func (h *AssessmentHandler) Restart(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Restart(r.Context(), caller(r))
	writeIntent(w, v, err)
}

// Export handles POST /v1/assessment/export and streams the PDF
func (h *AssessmentHandler) Export(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	art, err := h.svc.Export(r.Context(), c)
	if err != nil {
		writeIntent(w, h.svc.View(r.Context(), c), err)
		return
	}

	w.Header().Set("Content-Type", art.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("X-Report-Pages", strconv.Itoa(art.Pages))
	w.WriteHeader(http.StatusOK)
	w.Write(art.Data)
}
