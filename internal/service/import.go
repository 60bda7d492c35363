package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cloo-solutions/placesearch/internal/domain"
	"github.com/cloo-solutions/placesearch/internal/geocell"
	"github.com/cloo-solutions/placesearch/internal/telemetry"
)

const importBatchSize = 500

// PlaceWriter persists places in batches, replacing rows with the same ID.
type PlaceWriter interface {
	UpsertPlaces(ctx context.Context, places []domain.PlaceCandidate) (int, error)
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ImportService loads place seed files into a PlaceWriter.
type ImportService struct {
	writer   PlaceWriter
	txRunner TxRunner
	now      func() time.Time
}

func NewImportService(writer PlaceWriter) *ImportService {
	return &ImportService{writer: writer, now: time.Now}
}

// NewImportServiceWithTx writes every batch of an import in one transaction,
// so a failed import leaves the store unchanged.
func NewImportServiceWithTx(txRunner TxRunner) *ImportService {
	return &ImportService{txRunner: txRunner, now: time.Now}
}

// DecodePlaces reads a JSON array of places. Each place gets its geohash
// computed at full precision so cell prefixes of any length match it, and a
// creation time when the seed omits one.
func DecodePlaces(r io.Reader, now time.Time) ([]domain.PlaceCandidate, error) {
	var places []domain.PlaceCandidate
	if err := json.NewDecoder(r).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode places: %w", err)
	}
	for i := range places {
		p := &places[i]
		p.Geohash = geocell.Encode(p.Lat, p.Lon, geocell.MaxPrecision)
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
	}
	return places, nil
}

// Import validates every place and upserts the valid ones. Invalid places are
// logged and counted, not fatal.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ImportService.Import", telemetry.SpanAttributes{
		Operation: "import",
	})
	defer span.End()

	places, err := DecodePlaces(r, s.now().UTC())
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid place file", err)
	}

	result := &ImportResult{}
	valid := make([]domain.PlaceCandidate, 0, len(places))
	for i := range places {
		if err := domain.ValidatePlace(&places[i]); err != nil {
			log.Printf("import: skipping place %d: %v", i, err)
			result.Skipped++
			continue
		}
		valid = append(valid, places[i])
	}

	if s.txRunner == nil {
		result.Imported, err = writeBatches(ctx, s.writer, valid)
	} else {
		err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			n, err := writeBatches(ctx, repos.Places(), valid)
			result.Imported = n
			return err
		})
		if err != nil {
			result.Imported = 0
		}
	}
	if err != nil {
		span.SetError(err)
		return result, err
	}
	return result, nil
}

func writeBatches(ctx context.Context, writer PlaceWriter, places []domain.PlaceCandidate) (int, error) {
	written := 0
	for start := 0; start < len(places); start += importBatchSize {
		end := min(start+importBatchSize, len(places))
		n, err := writer.UpsertPlaces(ctx, places[start:end])
		if err != nil {
			return written, fmt.Errorf("upsert places %d-%d: %w", start, end, err)
		}
		written += n
	}
	return written, nil
}
