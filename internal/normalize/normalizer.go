package normalize

import (
	"time"

	"go.uber.org/zap"
)

// Normalizer applies Date and Timestamp with a clock and reports every
// fallback to the logger.
type Normalizer struct {
	log *zap.Logger
	now func() time.Time
}

func NewNormalizer(log *zap.Logger, now func() time.Time) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{log: log, now: now}
}

func (n *Normalizer) Now() time.Time { return n.now() }

// Date returns the canonical date for field.
func (n *Normalizer) Date(field, input string) string {
	r := Date(input, n.now())
	n.report(field, input, r)
	return r.Value
}

// Timestamp returns the canonical timestamp for field.
func (n *Normalizer) Timestamp(field, input string) string {
	r := Timestamp(input, n.now())
	n.report(field, input, r)
	return r.Value
}

func (n *Normalizer) report(field, input string, r Result) {
	if !r.FellBack() {
		return
	}
	fields := []zap.Field{
		zap.String("field", field),
		zap.String("input", input),
		zap.String("reason", r.Reason),
		zap.String("fallback", r.Value),
	}
	if r.Reason == ReasonEmpty {
		n.log.Debug("defaulted empty date field", fields...)
		return
	}
	n.log.Warn("could not parse date field, substituted current time", fields...)
}
