package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
)

// statusFor maps an orchestrator error to an HTTP status code.
func statusFor(err error) int {
	switch interview.KindOf(err) {
	case interview.KindInvalidInput:
		return http.StatusBadRequest
	case interview.KindLoad:
		if errors.Is(err, fs.ErrNotExist) {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case interview.KindNotBuilt, interview.KindNoSourceSelected, interview.KindNoQuestionPending:
		return http.StatusConflict
	case interview.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case interview.KindIndexBuild, interview.KindUpstreamMalformedOutput, interview.KindUpstreamRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// failureMessage returns the message shown to clients for err. Errors that
// describe a problem with the request are shown as is; backend failures are
// prefixed with what was being attempted.
func failureMessage(prefix string, err error) string {
	switch interview.KindOf(err) {
	case interview.KindInvalidInput, interview.KindLoad, interview.KindNoSourceSelected, interview.KindNoQuestionPending:
		return err.Error()
	default:
		return prefix + err.Error()
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, StatusResponse{Success: false, Message: msg})
}
