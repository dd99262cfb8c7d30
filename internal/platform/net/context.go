// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const keyParticipant ctxKey = "participant_id"

// WithRequest annotates context with the request id and the participant a request is about
func WithRequest(ctx context.Context, reqID, participant string) context.Context {
	if reqID != "" {
		// chimw.GetReqID reads the same key
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if participant != "" {
		ctx = context.WithValue(ctx, keyParticipant, participant)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// Participant returns the participant id on the context if present
func Participant(ctx context.Context) string {
	if v, ok := ctx.Value(keyParticipant).(string); ok {
		return v
	}
	return ""
}
