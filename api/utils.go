package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

func sendError(res http.ResponseWriter, err error, message string, statusCode int) {
	if err != nil {
		if message == "" {
			message = err.Error()
		} else {
			message = wrap.Error(err, message).Error()
		}
	}

	http.Error(res, message, statusCode)
}

func sendClientError(res http.ResponseWriter, err error, message string) {
	sendError(res, err, message, http.StatusBadRequest)
}

func sendServerError(res http.ResponseWriter, err error, message string) {
	if err == nil {
		err = errors.New("unknown error")
	}
	log.ErrorCause(err, message)
	sendError(res, err, message, http.StatusInternalServerError)
}

func sendMethodNotAllowed(res http.ResponseWriter, req *http.Request, allowed ...string) {
	res.Header().Set("Allow", strings.Join(allowed, ", "))
	sendError(
		res, nil, "method "+req.Method+" not allowed on "+req.URL.Path, http.StatusMethodNotAllowed,
	)
}

func requireMethod(res http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		sendMethodNotAllowed(res, req, method)
		return false
	}
	return true
}

func sendJSON(res http.ResponseWriter, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		sendServerError(res, err, "failed to serialize response")
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(encoded); err != nil {
		log.ErrorCause(err, "failed to write response")
	}
}
