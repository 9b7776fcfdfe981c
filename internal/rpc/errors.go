package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"spendlog/internal/core"
)

// Error codes carried in the error envelope.
const (
	CodeParseError         = "PARSE_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeMethodNotSupported = "METHOD_NOT_SUPPORTED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// Error is the failure body returned for a procedure call.
type Error struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	HTTPStatus int               `json:"httpStatus"`
	Procedure  string            `json:"procedure,omitempty"`
	Issues     []core.FieldIssue `json:"issues,omitempty"`
}

func (e *Error) Error() string { return e.Message }

func newError(status int, code, msg string) *Error {
	return &Error{Code: code, Message: msg, HTTPStatus: status}
}

// toError classifies err for the wire. Unclassified errors keep their text.
func toError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var de *core.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case core.KindValidation:
			e := newError(http.StatusBadRequest, CodeBadRequest, de.Error())
			e.Issues = de.Issues
			return e
		case core.KindNotFound:
			return newError(http.StatusNotFound, CodeNotFound, de.Error())
		case core.KindConflict:
			return newError(http.StatusConflict, CodeConflict, de.Error())
		}
	}
	return newError(http.StatusInternalServerError, CodeInternal, err.Error())
}

// decodeError separates malformed JSON from well-formed input of the wrong shape.
func decodeError(err error) *Error {
	var de *core.Error
	if errors.As(err, &de) {
		return toError(de)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		msg := "Invalid input"
		if typeErr.Field != "" {
			msg = "Invalid value for " + typeErr.Field + ": expected " + typeErr.Type.String()
		}
		return newError(http.StatusBadRequest, CodeBadRequest, msg)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return newError(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large")
	}
	return newError(http.StatusBadRequest, CodeParseError, "Invalid JSON input: "+err.Error())
}
