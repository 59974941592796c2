package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/telhawk-systems/hecrelay/common/httputil"
	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/internal/auth"
	"github.com/telhawk-systems/hecrelay/internal/decompress"
	"github.com/telhawk-systems/hecrelay/internal/metrics"
	"github.com/telhawk-systems/hecrelay/internal/models"
	"github.com/telhawk-systems/hecrelay/internal/pipeline"
)

// Dispatcher replays a parsed batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch models.Batch) models.DispatchReport
}

// ReadinessFunc reports whether the relay can currently send packets.
type ReadinessFunc func() error

// RelayHandler serves the relay endpoint and the health probes.
type RelayHandler struct {
	pipeline   *pipeline.Pipeline
	dispatcher Dispatcher
	ready      ReadinessFunc
	logger     *logging.Logger
}

// Options configure the request gates of a RelayHandler.
type Options struct {
	Token                string
	MaxBodyBytes         int64
	MaxDecompressedBytes int64
	Ready                ReadinessFunc
}

// NewRelayHandler builds the request pipeline: authentication, method check,
// body limit, gzip decoding. Authentication runs first and before the body
// is read.
func NewRelayHandler(d Dispatcher, logger *logging.Logger, opts Options) *RelayHandler {
	if logger == nil {
		logger = logging.Default()
	}
	p := pipeline.New(
		auth.NewAuthenticator(opts.Token).Stage,
		pipeline.RequireMethod(http.MethodPost),
		pipeline.LimitBody(opts.MaxBodyBytes),
		decompress.NewGate(opts.MaxDecompressedBytes).Stage,
	)
	return &RelayHandler{
		pipeline:   p,
		dispatcher: d,
		ready:      opts.Ready,
		logger:     logger,
	}
}

// HandleRelay accepts a batch of events and replays each one as a UDP packet.
// Once dispatch starts the response is 200 with the per-event counts.
func (h *RelayHandler) HandleRelay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	req, err := h.pipeline.Run(ctx, pipeline.FromHTTP(r))
	if err != nil {
		h.sendError(w, err)
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.sendError(w, err)
		return
	}

	batch, err := models.ParseBatch(body)
	if err != nil {
		log.Warn("rejecting malformed batch", logging.Error(err))
		h.sendError(w, pipeline.ErrMalformedBody)
		return
	}

	start := time.Now()
	report := h.dispatcher.Dispatch(ctx, batch)
	log.Info("batch dispatched",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"cancelled", report.Cancelled,
		logging.Duration(time.Since(start).Milliseconds()),
	)

	metrics.RequestsTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	httputil.WriteJSON(w, http.StatusOK, models.NewBatchResponse(report))
}

// Health is the liveness probe.
func (h *RelayHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready fails while the packet sender is unusable, e.g. without raw socket
// privilege.
func (h *RelayHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// sendError answers 401 with a plain {"error":"Unauthorized"} body; other
// request errors also carry their code.
func (h *RelayHandler) sendError(w http.ResponseWriter, err error) {
	perr := pipeline.AsError(err)
	metrics.RequestsTotal.WithLabelValues(strconv.Itoa(perr.Status)).Inc()

	switch {
	case errors.Is(perr, pipeline.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		httputil.WriteError(w, perr.Status, perr.Text)
		return
	case errors.Is(perr, pipeline.ErrMethodNotAllowed):
		w.Header().Set("Allow", http.MethodPost)
	}
	httputil.WriteCodedError(w, perr.Status, perr.Code, perr.Text)
}
