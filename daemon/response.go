// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/markhindley/elogind/logger"
)

// ResponseType is the response type
type ResponseType string

const (
	ResponseTypeSync  ResponseType = "sync"
	ResponseTypeError ResponseType = "error"
)

// Response knows how to serve itself.
type Response interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

type resp struct {
	Type   ResponseType `json:"type"`
	Status int          `json:"status_code"`
	Result interface{}  `json:"result"`
}

func (r *resp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":        r.Type,
		"status":      http.StatusText(r.Status),
		"status_code": r.Status,
		"result":      &r.Result,
	})
}

func (r *resp) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := r.Status
	bs, err := r.MarshalJSON()
	if err != nil {
		logger.Noticef("cannot marshal %#v to JSON: %v", *r, err)
		bs = nil
		status = http.StatusInternalServerError
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(bs)
}

type errorResult struct {
	Message string `json:"message"`
}

// SyncResponse builds a "sync" response from the given result.
func SyncResponse(result interface{}) Response {
	if err, ok := result.(error); ok {
		return InternalError("internal error: %v", err)
	}

	if rsp, ok := result.(Response); ok {
		return rsp
	}

	return &resp{
		Type:   ResponseTypeSync,
		Status: http.StatusOK,
		Result: result,
	}
}

// ErrorResponse builds an "error" responder for the given status.
func ErrorResponse(status int) errorResponder {
	return func(format string, v ...interface{}) Response {
		msg := fmt.Sprintf(format, v...)
		return &resp{
			Type:   ResponseTypeError,
			Status: status,
			Result: &errorResult{Message: msg},
		}
	}
}

// errorResponder is a callable error Response, so you can return e.g.
// BadRequest or BadRequest("request is off: %v", err).
type errorResponder func(string, ...interface{}) Response

func (f errorResponder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f("").ServeHTTP(w, r)
}

// standard error responses
var (
	NotFound      = ErrorResponse(http.StatusNotFound)
	BadRequest    = ErrorResponse(http.StatusBadRequest)
	BadMethod     = ErrorResponse(http.StatusMethodNotAllowed)
	InternalError = ErrorResponse(http.StatusInternalServerError)
)
