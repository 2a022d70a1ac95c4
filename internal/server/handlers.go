package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/certifications"
	"github.com/skillsync/skillsync/internal/pipeline"
)

var validate = validator.New()

type matchRequest struct {
	ResumeText string   `json:"resume_text" validate:"max=200000"`
	Keywords   []string `json:"keywords" validate:"max=20,dive,max=100"`
	Location   string   `json:"location" validate:"max=200"`
	Page       int      `json:"page" validate:"gte=0,lte=100"`
}

type skillsRequest struct {
	Text string `json:"text" validate:"max=200000"`
}

type skillView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ResumeText) == "" && len(req.Keywords) == 0 {
		s.fail(w, r, http.StatusBadRequest, errors.New("resume_text or keywords is required"))
		return
	}

	res, err := s.matcher.Run(r.Context(), pipeline.Request{
		ResumeText: req.ResumeText,
		Keywords:   req.Keywords,
		Location:   req.Location,
		Page:       req.Page,
	})
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	s.jsonResponse(w, r, http.StatusOK, res)
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	var req skillsRequest
	if !s.decode(w, r, &req) {
		return
	}

	set := s.matcher.Skills(r.Context(), req.Text)
	views := make([]skillView, 0, set.Len())
	for _, id := range set.Sorted() {
		views = append(views, skillView{ID: id, Name: s.names(id)})
	}

	s.jsonResponse(w, r, http.StatusOK, map[string]any{"skills": views})
}

func (s *Server) handleCertifications(w http.ResponseWriter, r *http.Request) {
	skills := certifications.ParseSkills(r.URL.Query().Get("skills"))
	if len(skills) == 0 {
		s.fail(w, r, http.StatusBadRequest, errors.New("skills query parameter is required"))
		return
	}
	if s.certs == nil {
		s.fail(w, r, http.StatusServiceUnavailable, errors.New("certification lookup is not configured"))
		return
	}

	certs, err := s.certs.Lookup(r.Context(), skills)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	s.jsonResponse(w, r, http.StatusOK, map[string]any{"certifications": certs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.fail(w, r, http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, io.EOF):
			s.fail(w, r, http.StatusBadRequest, errors.New("request body is empty"))
		default:
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		}
		return false
	}

	if err := validate.Struct(dst); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := s.requestLogger(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Debug("bad request", zap.Int("status", status), zap.Error(err))
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	s.jsonResponse(w, r, status, errorResponse{Error: msg, RequestID: w.Header().Get(headerRequestID)})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.requestLogger(r.Context()).Warn("encoding JSON response", zap.Error(err))
	}
}
