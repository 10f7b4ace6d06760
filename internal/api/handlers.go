package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
)

// StatusResponse reports the outcome of an operation with no other payload.
// It is also the body of every error that has no richer shape.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SourceResponse is returned by select_source and upload_pdf.
type SourceResponse = StatusResponse

type SourceSelection struct {
	SourceName string `json:"source_name"`
}

type QuestionResponse struct {
	Question string `json:"question"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

type AnswerResponse struct {
	Score           string `json:"score"`
	Feedback        string `json:"feedback"`
	ReferenceAnswer string `json:"reference_answer"`
	Success         bool   `json:"success"`
	Message         string `json:"message"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type PassageResponse struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

type AskResponse struct {
	Answer   string            `json:"answer"`
	Passages []PassageResponse `json:"passages"`
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
}

// InfoResponse lists the API's endpoints.
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Version is reported by / and /api/info.
const Version = "1.0.0"

var endpoints = map[string]string{
	"api_info":          "/api/info - Get API information",
	"sources":           "/api/sources - Get list of available knowledge sources",
	"select_source":     "/api/select_source - Select a knowledge source",
	"generate_question": "/api/generate_question - Generate an interview question",
	"submit_answer":     "/api/submit_answer - Submit an answer for evaluation",
	"upload_pdf":        "/api/upload_pdf - Upload a new PDF file",
	"ask":               "/api/ask - Ask a question about the selected source",
	"session":           "/api/session - Show or end the current session",
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{Message: "Interview Q&A API", Version: Version, Endpoints: endpoints})
}

func handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{Message: "Interview Chatbot API", Version: Version, Endpoints: endpoints})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleSources(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := deps.Service.ListSources(r.Context())
		if err != nil {
			httpError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, names)
	}
}

func handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Snapshot())
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r.Context())
		deps.Sessions.Delete(s.ID())
		writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Session ended"})
	}
}

func handleUploadPDF(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxUploadBytes)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Error uploading file: file exceeds %d bytes", tooLarge.Limit))
				return
			}
			httpError(w, http.StatusBadRequest, "Error uploading file: missing multipart field \"file\"")
			return
		}
		defer file.Close()

		s := sessionFrom(r.Context())
		msg, err := deps.Service.Upload(r.Context(), s, header.Filename, file)
		if err != nil {
			slog.Warn("upload failed", "session", s.ID(), "file", header.Filename, "error", err)
			writeJSON(w, statusFor(err), SourceResponse{Success: false, Message: failureMessage("Error uploading file: ", err)})
			return
		}
		writeJSON(w, http.StatusOK, SourceResponse{Success: true, Message: msg})
	}
}

func handleSelectSource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SourceSelection
		if !decodeBody(w, r, &req) {
			return
		}
		s := sessionFrom(r.Context())
		msg, err := deps.Service.SelectSource(r.Context(), s, req.SourceName)
		if err != nil {
			slog.Warn("select source failed", "session", s.ID(), "source", req.SourceName, "error", err)
			writeJSON(w, statusFor(err), SourceResponse{Success: false, Message: failureMessage("Error loading source: ", err)})
			return
		}
		writeJSON(w, http.StatusOK, SourceResponse{Success: true, Message: msg})
	}
}

func handleGenerateQuestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := interview.ParseMode(r.URL.Query().Get("mode"))
		if err != nil {
			writeJSON(w, statusFor(err), QuestionResponse{Message: err.Error()})
			return
		}
		q, err := deps.Service.GenerateQuestion(r.Context(), sessionFrom(r.Context()), mode)
		if err != nil {
			writeJSON(w, statusFor(err), QuestionResponse{Message: failureMessage("Error generating question: ", err)})
			return
		}
		writeJSON(w, http.StatusOK, QuestionResponse{Question: q, Success: true, Message: "Question generated successfully"})
	}
}

func handleSubmitAnswer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		eval, err := deps.Service.SubmitAnswer(r.Context(), sessionFrom(r.Context()), req.Answer)
		if err != nil {
			writeJSON(w, statusFor(err), AnswerResponse{Message: failureMessage("Error evaluating answer: ", err)})
			return
		}
		writeJSON(w, http.StatusOK, AnswerResponse{
			Score:           eval.Score,
			Feedback:        eval.Feedback,
			ReferenceAnswer: eval.ReferenceAnswer,
			Success:         true,
			Message:         "Answer evaluated successfully",
		})
	}
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		if !decodeBody(w, r, &req) {
			return
		}
		ans, err := deps.Service.Ask(r.Context(), sessionFrom(r.Context()), req.Question)
		if err != nil {
			writeJSON(w, statusFor(err), AskResponse{Passages: []PassageResponse{}, Message: failureMessage("Error answering question: ", err)})
			return
		}
		passages := make([]PassageResponse, len(ans.Passages))
		for i, p := range ans.Passages {
			passages[i] = PassageResponse{ID: p.ID, Source: p.Source, Page: p.Page, Text: p.Text}
		}
		writeJSON(w, http.StatusOK, AskResponse{Answer: ans.Text, Passages: passages, Success: true, Message: "Question answered successfully"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
