// Package dispatcher replays a parsed batch, one event at a time and in
// order, through the classifier and the packet forwarder.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/internal/classifier"
	"github.com/telhawk-systems/hecrelay/internal/forwarder"
	"github.com/telhawk-systems/hecrelay/internal/metrics"
	"github.com/telhawk-systems/hecrelay/internal/models"
)

// ErrInvalidEvent covers records that cannot be decoded or lack a required field.
var ErrInvalidEvent = errors.New("invalid event")

// PacketForwarder is the capability used to emit one datagram.
type PacketForwarder interface {
	Forward(ctx context.Context, src, dst string, port int, payload []byte) error
}

type outcome int

const (
	outcomeForwarded outcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeCancelled
)

// Dispatcher drives the classifier and forwarder for each event of a batch.
type Dispatcher struct {
	classifier *classifier.Classifier
	forwarder  PacketForwarder
	logger     *logging.Logger
}

// New returns a Dispatcher. A nil logger uses the process default.
func New(c *classifier.Classifier, f PacketForwarder, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{classifier: c, forwarder: f, logger: logger}
}

// Dispatch processes every record exactly once, in batch order. A failing
// event never stops the batch. Once ctx is done no further packets are sent
// and the remaining events are reported as cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, batch models.Batch) models.DispatchReport {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	report := models.DispatchReport{Total: len(batch)}
	log := d.logger.WithContext(ctx)

	for i, record := range batch {
		if ctx.Err() != nil {
			remaining := len(batch) - i
			report.Cancelled += remaining
			metrics.EventsTotal.WithLabelValues("unknown", metrics.OutcomeCancelled).Add(float64(remaining))
			log.Warn("dispatch cancelled",
				logging.EventIndex(i),
				slog.Int("remaining", remaining),
				logging.Error(ctx.Err()),
			)
			break
		}

		sourcetype, err := d.dispatchOne(ctx, log, i, record)
		switch classify(err) {
		case outcomeForwarded:
			report.Succeeded++
			metrics.EventsTotal.WithLabelValues(sourcetype, metrics.OutcomeForwarded).Inc()
		case outcomeSkipped:
			report.Skipped++
			metrics.EventsTotal.WithLabelValues(sourcetype, metrics.OutcomeSkipped).Inc()
			log.Warn("event skipped", logging.EventIndex(i), logging.Error(err))
		case outcomeFailed:
			report.Failed++
			metrics.EventsTotal.WithLabelValues(sourcetype, metrics.OutcomeFailed).Inc()
			log.Error("event send failed", logging.EventIndex(i), logging.Error(err))
		case outcomeCancelled:
			// The send was not attempted.
			report.Cancelled += len(batch) - i
			metrics.EventsTotal.WithLabelValues(sourcetype, metrics.OutcomeCancelled).Add(float64(len(batch) - i))
			log.Warn("dispatch cancelled", logging.EventIndex(i), logging.Error(err))
			return report
		}
	}

	return report
}

// dispatchOne returns the metrics label for the event's sourcetype along
// with the outcome error.
func (d *Dispatcher) dispatchOne(ctx context.Context, log *slog.Logger, i int, record []byte) (string, error) {
	event, err := models.DecodeEvent(record)
	if err != nil {
		return "unknown", fmt.Errorf("%w: decode: %v", ErrInvalidEvent, err)
	}

	kind := classifier.ParseKind(event.SourceType)
	sourcetype := metrics.SourcetypeLabel(event.SourceType, kind != classifier.KindOther)

	if err := validate(event); err != nil {
		return sourcetype, err
	}

	result, err := d.classifier.Classify(event.SourceType, event.RawBytes())
	if err != nil {
		return sourcetype, err
	}

	port := result.DefaultPort
	if event.HasPort() {
		port, err = parsePort(event.DestinationPort.String())
		if err != nil {
			return sourcetype, err
		}
	}

	if err := d.forwarder.Forward(ctx, event.Host, event.VIP, port, result.Payload); err != nil {
		return sourcetype, err
	}

	log.Info("event forwarded",
		logging.EventIndex(i),
		logging.Sourcetype(event.SourceType),
		logging.Host(event.Host),
		logging.VIP(event.VIP),
		logging.Port(port),
		slog.Int("bytes", len(result.Payload)),
	)
	return sourcetype, nil
}

func validate(event models.Event) error {
	switch {
	case event.Host == "":
		return fmt.Errorf("%w: missing host", ErrInvalidEvent)
	case event.VIP == "":
		return fmt.Errorf("%w: missing vip", ErrInvalidEvent)
	case event.SourceType == "":
		return fmt.Errorf("%w: missing sourcetype", ErrInvalidEvent)
	}
	return nil
}

// parsePort accepts integers in 1-65535. An invalid explicit port does not
// fall back to the default.
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: destinationPort %q is not an integer", ErrInvalidEvent, s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: destinationPort %d out of range 1-65535", ErrInvalidEvent, port)
	}
	return port, nil
}

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeForwarded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCancelled
	case errors.Is(err, forwarder.ErrSend):
		return outcomeFailed
	default:
		// ErrInvalidEvent, classifier errors and ErrInvalidPacket.
		return outcomeSkipped
	}
}
