package wxt

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/wxtd/internal/metrics"
	"github.com/lox/wxtd/internal/models"
	"github.com/lox/wxtd/internal/transport"
)

// Protocol selects the wire format the transmitter is configured for.
type Protocol string

const (
	// ProtocolASCII is the comma-delimited key=value line protocol.
	ProtocolASCII Protocol = "ascii"
	// ProtocolLegacy is the 48-hex-character fixed-length frame protocol.
	ProtocolLegacy Protocol = "legacy"
)

// Config carries the resolved acquisition settings. Debug replaces the
// original firmware tooling's process-wide debug switch with a value scoped
// to one driver instance.
type Config struct {
	Protocol     Protocol
	PollInterval time.Duration
	MaxTries     int
	RetryWait    time.Duration
	Debug        bool
}

// Driver turns unreliable per-read serial I/O into a dependable stream of
// enriched observations. One transport session is opened and closed per
// attempt; the only state carried across polls is the previous cumulative
// rain reading.
type Driver struct {
	transport transport.Transport
	cfg       Config
	lastRain  *float64
}

func NewDriver(t transport.Transport, cfg Config) *Driver {
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolASCII
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 5
	}
	return &Driver{transport: t, cfg: cfg}
}

// Next acquires one enriched observation. Failed attempts are logged and
// retried after RetryWait; MaxTries consecutive failures terminate the
// stream with ErrRetriesExceeded. A success resets the failure budget, so
// the next call starts from a clean slate.
func (d *Driver) Next(ctx context.Context) (*models.Observation, error) {
	var obs *models.Observation
	attempt := 0
	op := func() error {
		attempt++
		o, err := d.acquire()
		if err != nil {
			metrics.ReadAttempts.WithLabelValues("error").Inc()
			log.Printf("driver: attempt %d of %d failed: %v", attempt, d.cfg.MaxTries, err)
			return err
		}
		metrics.ReadAttempts.WithLabelValues("ok").Inc()
		obs = o
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.cfg.RetryWait), uint64(d.cfg.MaxTries-1)),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w (%d attempts): %v", ErrRetriesExceeded, d.cfg.MaxTries, err)
	}
	return obs, nil
}

// Stream feeds observations to out until ctx is cancelled or the retry
// budget is exceeded. The channel send paces production: nothing is read
// from the sensor until the consumer is ready for the next record.
func (d *Driver) Stream(ctx context.Context, out chan<- *models.Observation) error {
	for {
		obs, err := d.Next(ctx)
		if err != nil {
			return err
		}
		select {
		case out <- obs:
		case <-ctx.Done():
			return ctx.Err()
		}
		if d.cfg.PollInterval > 0 {
			select {
			case <-time.After(d.cfg.PollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// acquire runs a single open/read/decode cycle against a fresh session.
func (d *Driver) acquire() (*models.Observation, error) {
	rc, err := d.transport.Open()
	if err != nil {
		return nil, &TransportError{Op: "open", Err: err}
	}
	defer rc.Close()

	pkt, err := d.readPacket(NewFramer(rc, d.cfg.Debug))
	if err != nil {
		return nil, err
	}
	metrics.PacketsDecoded.WithLabelValues(packetTypeLabel(pkt)).Inc()

	obs := &models.Observation{
		DateTime:   time.Now().Unix(),
		UnitSystem: d.unitSystem(),
	}
	pkt.apply(obs)
	d.enrich(obs)
	obs.QualityFlags = QualityFlagsToJSON(QualityFlags(obs))
	return obs, nil
}

// readPacket extracts the next decodable packet from the session. Frames
// failing structural validation are noise on the link: they are skipped
// without counting against the retry budget, bounded by the transport's
// read timeout.
func (d *Driver) readPacket(f *Framer) (Packet, error) {
	if d.cfg.Protocol == ProtocolLegacy {
		frame, err := f.ReadLegacyFrame()
		if err != nil {
			return nil, err
		}
		return DecodeLegacyFrame(frame)
	}
	for {
		line, err := f.ReadFrame()
		if err != nil {
			return nil, err
		}
		tokens, ok := ValidateFrame(string(line))
		if !ok {
			metrics.FramesDiscarded.Inc()
			if d.cfg.Debug {
				log.Printf("driver: discarding frame %q", line)
			}
			continue
		}
		return DecodePacket(tokens)
	}
}

// enrich applies the loop-level derivations: incremental rain against the
// carried cumulative counter, and wind direction nulled at zero speed.
func (d *Driver) enrich(obs *models.Observation) {
	if obs.LongTermRain.Valid {
		if d.lastRain != nil {
			obs.Rain = sql.NullFloat64{Float64: obs.LongTermRain.Float64 - *d.lastRain, Valid: true}
		}
		v := obs.LongTermRain.Float64
		d.lastRain = &v
	}
	if obs.WindSpeed.Valid && obs.WindSpeed.Float64 == 0 {
		obs.WindDir = sql.NullFloat64{}
	}
}

func (d *Driver) unitSystem() string {
	if d.cfg.Protocol == ProtocolLegacy {
		return models.UnitsUS
	}
	return models.UnitsMetric
}

func packetTypeLabel(pkt Packet) string {
	if _, ok := pkt.(*LegacyPacket); ok {
		return "legacy"
	}
	return strconv.Itoa(pkt.Type())
}
