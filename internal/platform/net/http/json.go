package http

import (
	"net/http"

	"github.com/open-sensor-research-platform/osrp/internal/platform/net/http/bind"
)

// JSONHandler decodes and validates a T from the body, then replies with fn's result
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			Fail(w, r, err)
			return
		}
		out, err := fn(r, in)
		if err != nil {
			Fail(w, r, err)
			return
		}
		Reply(w, r, http.StatusOK, out)
	}
}

// QueryHandler replies with fn's result; fn reads its input from the URL
func QueryHandler(fn func(*http.Request) (any, error)) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r)
		if err != nil {
			Fail(w, r, err)
			return
		}
		Reply(w, r, http.StatusOK, out)
	}
}
