// Package http provides http transport for fusion queries
package http

import (
	stdhttp "net/http"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/modkit/httpkit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/net/http/bind"
	ptime "github.com/open-sensor-research-platform/osrp/internal/platform/time"
	"github.com/open-sensor-research-platform/osrp/internal/services/api/fusion/domain"
	fusiondom "github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
)

// Deps are the handler dependencies
type Deps struct {
	Fusion fusiondom.Ports
	// Location resolves summary days; nil means UTC
	Location *time.Location
}

type handlers struct {
	svc fusiondom.Ports
	loc *time.Location
}

// Register mounts fusion endpoints on the given router
func Register(r httpkit.Router, d Deps) {
	h := &handlers{svc: d.Fusion, loc: d.Location}
	if h.loc == nil {
		h.loc = time.UTC
	}

	httpkit.PostJSON[domain.SessionsInput](r, "/sessions", h.sessions)
	httpkit.PostJSON[domain.AlignedInput](r, "/aligned", h.aligned)
	httpkit.PostJSON[domain.FeaturesInput](r, "/features", h.features)

	httpkit.Get(r, "/participants", h.participants)
	httpkit.Get(r, "/summary", h.summary)
}

// @Summary Screen sessions for one participant
// @Tags Fusion
// @Accept json
// @Produce json
// @Param payload body domain.SessionsInput true "Query"
// @Success 200 {array} segment.Session "ok"
// @Router /fusion/sessions [post]
func (h *handlers) sessions(r *stdhttp.Request, in domain.SessionsInput) (any, error) {
	req, err := in.Request()
	if err != nil {
		return nil, err
	}
	return h.svc.Sessions(r.Context(), req)
}

// @Summary Streams aligned on one grid
// @Tags Fusion
// @Accept json
// @Produce json
// @Param payload body domain.AlignedInput true "Query"
// @Success 200 {object} domain.FrameOut "ok"
// @Router /fusion/aligned [post]
func (h *handlers) aligned(r *stdhttp.Request, in domain.AlignedInput) (any, error) {
	req, err := in.Request()
	if err != nil {
		return nil, err
	}
	f, err := h.svc.Aligned(r.Context(), req)
	if err != nil {
		return nil, err
	}
	return domain.NewFrameOut(f), nil
}

// @Summary Feature windows for one participant
// @Tags Fusion
// @Accept json
// @Produce json
// @Param payload body domain.FeaturesInput true "Query"
// @Success 200 {array} window.FeatureWindow "ok"
// @Router /fusion/features [post]
func (h *handlers) features(r *stdhttp.Request, in domain.FeaturesInput) (any, error) {
	req, err := in.Request()
	if err != nil {
		return nil, err
	}
	return h.svc.Features(r.Context(), req)
}

// @Summary Participants selected by the study plan
// @Tags Fusion
// @Produce json
// @Router /fusion/participants [get]
func (h *handlers) participants(r *stdhttp.Request) (any, error) {
	return h.svc.Participants(r.Context())
}

// @Summary Daily summary for one participant
// @Tags Fusion
// @Produce json
// @Param participant query string true "participant id"
// @Param day query string true "local day, 2006-01-02"
// @Router /fusion/summary [get]
func (h *handlers) summary(r *stdhttp.Request) (any, error) {
	q := domain.SummaryQuery{
		Participant: r.URL.Query().Get("participant"),
		Day:         r.URL.Query().Get("day"),
	}
	if err := bind.Struct(q); err != nil {
		return nil, err
	}
	day, err := ptime.ParseDay(q.Day, h.loc)
	if err != nil {
		return nil, perr.WithField(perr.Validationf("day: %v", err), "day")
	}
	return h.svc.DailySummary(r.Context(), q.Participant, day)
}
