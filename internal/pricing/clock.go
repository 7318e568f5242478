package pricing

import (
	"time"

	"github.com/roach88/priceforge/internal/domain"
)

// Clock supplies the default as-of date of a calculation.
//
// It is the only wall-clock input of the service. Everything downstream of
// the as-of date is deterministic.
type Clock interface {
	Today() domain.Date
}

// SystemClock reports today's date in UTC.
type SystemClock struct{}

// Today implements Clock.
func (SystemClock) Today() domain.Date {
	return domain.DateOf(time.Now().UTC())
}
