// Package store persists the loan configuration record in a key-value store.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/installment-calc/pkg/loans"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Store when no value exists under a key.
var ErrNotFound = errors.New("key not found")

// Store is a minimal key-value store holding whole records under a key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// LoadInputs reads the record under key once and merges it over defaults. A
// missing record, or one that is not a JSON object, yields the defaults. A
// mistyped field only loses that field. Only store failures are returned as
// errors.
func LoadInputs(ctx context.Context, logger *zap.Logger, s Store, key string, defaults loans.Inputs) (loans.Inputs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		logger.Debug("no persisted record, using defaults",
			zap.String("op", "store.LoadInputs"),
			zap.String("key", key),
		)
		return loans.Normalize(loans.PartialInputs{}, defaults), nil
	}
	if err != nil {
		return loans.Inputs{}, fmt.Errorf("failed to read record %s: %w", key, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		logger.Warn("ignoring unreadable persisted record",
			zap.String("op", "store.LoadInputs"),
			zap.String("key", key),
			zap.Error(err),
		)
		return loans.Normalize(loans.PartialInputs{}, defaults), nil
	}

	return loans.Normalize(decodeFields(logger, key, fields), defaults), nil
}

// decodeFields decodes each known field on its own. A field whose value does
// not decode is dropped and falls back to its default; the others are kept.
func decodeFields(logger *zap.Logger, key string, fields map[string]json.RawMessage) loans.PartialInputs {
	var p loans.PartialInputs
	targets := map[string]interface{}{
		"price":              &p.Price,
		"downPaymentMode":    &p.DownPaymentMode,
		"downPaymentAmount":  &p.DownPaymentAmount,
		"downPaymentPercent": &p.DownPaymentPercent,
		"monthlyRate":        &p.MonthlyRate,
		"months":             &p.Months,
		"extraFees":          &p.ExtraFees,
		"method":             &p.Method,
	}

	for name, raw := range fields {
		target, ok := targets[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			logger.Warn("ignoring unreadable persisted field",
				zap.String("op", "store.LoadInputs"),
				zap.String("key", key),
				zap.String("field", name),
				zap.Error(err),
			)
		}
	}
	return p
}

// SaveInputs writes the full record under key.
func SaveInputs(ctx context.Context, s Store, key string, in loans.Inputs) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	return nil
}

// Seed writes defaults under key when no record exists yet. It reports
// whether a record was written.
func Seed(ctx context.Context, logger *zap.Logger, s Store, key string, defaults loans.Inputs) (bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	_, err := s.Get(ctx, key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("failed to check record %s: %w", key, err)
	}

	if err := SaveInputs(ctx, s, key, defaults); err != nil {
		return false, err
	}
	logger.Info("seeded default record",
		zap.String("op", "store.Seed"),
		zap.String("key", key),
	)
	return true, nil
}
