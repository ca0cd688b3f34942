// Package session holds the live loan state for one user, recomputes the
// calculation on every edit and persists the inputs in the background.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/installment-calc/internal/store"
	"github.com/iwvelando/installment-calc/pkg/format"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"github.com/iwvelando/installment-calc/pkg/output"
	"go.uber.org/zap"
)

// DefaultWriteTimeout bounds a single background write.
const DefaultWriteTimeout = 5 * time.Second

// ErrUnknownPreset is returned when a preset name does not match any preset.
var ErrUnknownPreset = errors.New("unknown preset")

// Options configures a Session.
type Options struct {
	Key          string
	Defaults     loans.Inputs
	Presets      []loans.Preset
	WriteTimeout time.Duration
}

// Session is the single writer of a loan record.
type Session struct {
	id      string
	logger  *zap.Logger
	key     string
	presets []loans.Preset
	persist *persister

	mu     sync.RWMutex
	inputs loans.Inputs
	calc   loans.Calculation
}

// Open loads the persisted record once, merges it over the defaults and
// computes the first calculation.
func Open(ctx context.Context, logger *zap.Logger, s store.Store, opts Options) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	in, err := store.LoadInputs(ctx, logger, s, opts.Key, opts.Defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session", id))
	sess := &Session{
		id:      id,
		logger:  logger,
		key:     opts.Key,
		presets: opts.Presets,
		persist: newPersister(logger, s, opts.Key, opts.WriteTimeout),
		inputs:  in,
		calc:    loans.Calculate(in),
	}

	logger.Info("session opened",
		zap.String("op", "session.Open"),
		zap.String("key", opts.Key),
		zap.Float64("price", in.Price),
		zap.Int("months", in.Months),
	)
	return sess, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Inputs returns the current canonical inputs.
func (s *Session) Inputs() loans.Inputs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputs
}

// Calculation returns the calculation for the current inputs.
func (s *Session) Calculation() loans.Calculation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calc
}

// Presets returns the presets this session can apply.
func (s *Session) Presets() []loans.Preset {
	return s.presets
}

// SetPrice edits the item price.
func (s *Session) SetPrice(v float64) loans.Calculation {
	return s.update("price", func(in *loans.Inputs) { in.SetPrice(v) })
}

// SetDownPaymentAmount edits the down payment as an amount.
func (s *Session) SetDownPaymentAmount(v float64) loans.Calculation {
	return s.update("downPaymentAmount", func(in *loans.Inputs) { in.SetDownPaymentAmount(v) })
}

// SetDownPaymentPercent edits the down payment as a percent of the price.
func (s *Session) SetDownPaymentPercent(v float64) loans.Calculation {
	return s.update("downPaymentPercent", func(in *loans.Inputs) { in.SetDownPaymentPercent(v) })
}

// SetDownPaymentMode switches how the down payment is entered.
func (s *Session) SetDownPaymentMode(m loans.DownPaymentMode) loans.Calculation {
	return s.update("downPaymentMode", func(in *loans.Inputs) { in.SetDownPaymentMode(m) })
}

// SetMonthlyRate edits the monthly interest rate in percent.
func (s *Session) SetMonthlyRate(v float64) loans.Calculation {
	return s.update("monthlyRate", func(in *loans.Inputs) { in.SetMonthlyRate(v) })
}

// SetMonths edits the loan term.
func (s *Session) SetMonths(v float64) loans.Calculation {
	return s.update("months", func(in *loans.Inputs) { in.SetMonths(v) })
}

// SetExtraFees edits the fees financed with the loan.
func (s *Session) SetExtraFees(v float64) loans.Calculation {
	return s.update("extraFees", func(in *loans.Inputs) { in.SetExtraFees(v) })
}

// SetMethod switches the amortization method.
func (s *Session) SetMethod(m loans.Method) loans.Calculation {
	return s.update("method", func(in *loans.Inputs) { in.SetMethod(m) })
}

// Edit applies the present fields of p as individual field edits.
func (s *Session) Edit(p loans.PartialInputs) loans.Calculation {
	if p.IsEmpty() {
		return s.Calculation()
	}
	return s.update("edit", func(in *loans.Inputs) { in.Edit(p) })
}

// ApplyPreset merges the named preset over the current inputs.
func (s *Session) ApplyPreset(name string) (loans.Calculation, error) {
	preset, ok := loans.FindPreset(s.presets, name)
	if !ok {
		return loans.Calculation{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return s.update("preset:"+preset.Name, func(in *loans.Inputs) { in.Apply(preset.Inputs) }), nil
}

// ExportText renders the summary text of the current calculation.
func (s *Session) ExportText(f *format.Formatter) (string, error) {
	text, err := output.SummaryText(s.Calculation(), f)
	if err != nil {
		s.advise("session.ExportText", err)
	}
	return text, err
}

// ExportCSV renders the full schedule of the current calculation as CSV.
func (s *Session) ExportCSV() (string, error) {
	csv, err := output.ScheduleCSV(s.Calculation())
	if err != nil {
		s.advise("session.ExportCSV", err)
	}
	return csv, err
}

// Flush blocks until all pending writes have reached the store.
func (s *Session) Flush() {
	s.persist.flush()
}

// Close flushes pending writes and stops the background writer.
func (s *Session) Close() {
	s.persist.close()
	s.logger.Debug("session closed", zap.String("op", "session.Close"))
}

func (s *Session) update(field string, edit func(*loans.Inputs)) loans.Calculation {
	s.mu.Lock()
	edit(&s.inputs)
	s.calc = loans.Calculate(s.inputs)
	calc := s.calc
	s.persist.enqueue(s.inputs)
	s.mu.Unlock()

	s.logger.Debug("inputs updated",
		zap.String("op", "session.update"),
		zap.String("field", field),
		zap.Bool("empty", calc.Empty),
		zap.Float64("periodicPayment", calc.Result.PeriodicPayment),
	)
	return calc
}

func (s *Session) advise(op string, err error) {
	s.logger.Info("nothing to export", zap.String("op", op), zap.Error(err))
}
