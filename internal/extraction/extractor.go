// Package extraction turns raw customer text into structured candidate
// fields by calling an external text-understanding service.
package extraction

import (
	"context"
	"errors"

	"tablepilot/internal/domain/reservation"
)

// ErrExtractionFailed covers timeouts, malformed responses and responses in
// which no field at all was usable. The adapter never retries; a failed
// message is dropped by the caller.
var ErrExtractionFailed = errors.New("extraction failed")

type Extractor interface {
	Extract(ctx context.Context, rawText string) (reservation.CandidateFields, error)
}
