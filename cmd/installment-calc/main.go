package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/installment-calc/internal/config"
	"github.com/iwvelando/installment-calc/internal/session"
	"github.com/iwvelando/installment-calc/internal/store"
	"github.com/iwvelando/installment-calc/pkg/constants"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"github.com/iwvelando/installment-calc/pkg/output"
	"github.com/iwvelando/installment-calc/pkg/validation"
	"go.uber.org/zap"
)

// editFlags holds the field overrides; only flags set on the command line are
// applied.
type editFlags struct {
	price       float64
	down        float64
	downPercent float64
	downMode    string
	rate        float64
	months      float64
	fees        float64
	method      string
}

func (e *editFlags) register(fs *flag.FlagSet) {
	fs.Float64Var(&e.price, "price", 0, "product price")
	fs.Float64Var(&e.down, "down", 0, "down payment amount")
	fs.Float64Var(&e.downPercent, "down-percent", 0, "down payment percentage of the price")
	fs.StringVar(&e.downMode, "down-mode", "", "authoritative down payment field: amount, percent")
	fs.Float64Var(&e.rate, "rate", 0, "monthly interest rate in percent")
	fs.Float64Var(&e.months, "months", 0, "term in months (1-120)")
	fs.Float64Var(&e.fees, "fees", 0, "extra fees added to the loan")
	fs.StringVar(&e.method, "method", "", "interest method: flat, reducing")
}

// patch converts the flags that were set into a partial edit.
func (e *editFlags) patch(fs *flag.FlagSet) loans.PartialInputs {
	var p loans.PartialInputs
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "price":
			p.Price = loans.Float(e.price)
		case "down":
			p.DownPaymentAmount = loans.Float(e.down)
		case "down-percent":
			p.DownPaymentPercent = loans.Float(e.downPercent)
		case "down-mode":
			mode := loans.DownPaymentMode(e.downMode)
			p.DownPaymentMode = &mode
		case "rate":
			p.MonthlyRate = loans.Float(e.rate)
		case "months":
			p.Months = loans.Float(e.months)
		case "fees":
			p.ExtraFees = loans.Float(e.fees)
		case "method":
			method := loans.Method(e.method)
			p.Method = &method
		}
	})
	return p
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, text")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	seed := flag.Bool("seed", false, "write the default record if none is persisted yet")
	preset := flag.String("preset", "", "apply a named preset before the field overrides")
	rows := flag.Int("rows", 0, "schedule rows shown in pretty output (0 uses the configured value)")
	var edits editFlags
	edits.register(flag.CommandLine)
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(), zap.String("op", "main"))
	}

	previewRows := conf.Output.PreviewRows
	if *rows > 0 {
		previewRows = *rows
	}

	opts := runOptions{
		seed:         *seed,
		preset:       *preset,
		patch:        edits.patch(flag.CommandLine),
		outputFormat: outputFormat,
		previewRows:  previewRows,
	}
	if err := run(context.Background(), logger, conf, opts, os.Stdout); err != nil {
		if errors.Is(err, output.ErrNoCalculation) {
			logger.Warn(err.Error(), zap.String("op", "main"))
			_ = logger.Sync()
			os.Exit(2)
		}
		logger.Fatal("installment calculation failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

type runOptions struct {
	seed         bool
	preset       string
	patch        loans.PartialInputs
	outputFormat string
	previewRows  int
}

func run(ctx context.Context, logger *zap.Logger, conf *config.Configuration, opts runOptions, w io.Writer) error {
	s, closeStore, err := store.Open(conf.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", conf.Store.Backend, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.String("op", "main.run"), zap.Error(err))
		}
	}()

	defaults := conf.DefaultInputs()
	if opts.seed {
		if _, err := store.Seed(ctx, logger, s, conf.Store.Key, defaults); err != nil {
			return err
		}
	}

	sess, err := session.Open(ctx, logger, s, session.Options{
		Key:      conf.Store.Key,
		Defaults: defaults,
		Presets:  conf.AllPresets(),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.preset != "" {
		if _, err := sess.ApplyPreset(opts.preset); err != nil {
			return err
		}
	}
	calc := sess.Edit(opts.patch)

	f := conf.Formatter()
	switch opts.outputFormat {
	case constants.OutputFormatCSV:
		return output.WriteScheduleCSV(w, calc)
	case constants.OutputFormatText:
		text, err := sess.ExportText(f)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		return output.PrettyFormat(w, calc, f, opts.previewRows)
	}
}
