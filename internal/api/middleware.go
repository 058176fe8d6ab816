package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID    = "X-Request-ID"
	attributeRequestID = "request_id"
)

// RequestID tags every request with an id, reusing the caller's when given.
func RequestID(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	id := req.HeaderParameter(HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	req.SetAttribute(attributeRequestID, id)
	resp.AddHeader(HeaderRequestID, id)
	chain.ProcessFilter(req, resp)
}

func requestID(req *restful.Request) string {
	id, _ := req.Attribute(attributeRequestID).(string)
	return id
}

// Logger returns a filter logging one line per request.
func Logger(logger *zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)

		logger.Info().
			Str("request_id", requestID(req)).
			Str("method", req.Request.Method).
			Str("path", req.Request.URL.Path).
			Int("status", resp.StatusCode()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}

// RecoverPanic turns a handler panic into a 500.
func RecoverPanic(logger *zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("request_id", requestID(req)).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")
				HandleError(resp, nil, http.StatusInternalServerError)
			}
		}()
		chain.ProcessFilter(req, resp)
	}
}

// HandleError writes a JSON error. Server side errors get a generic message.
func HandleError(resp *restful.Response, err error, status int) {
	msg := http.StatusText(status)
	if status < http.StatusInternalServerError && err != nil {
		msg = err.Error()
	}
	_ = resp.WriteHeaderAndEntity(status, ErrorResponse{Code: status, Message: msg})
}
