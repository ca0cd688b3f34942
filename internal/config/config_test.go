package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/installment-calc/pkg/constants"
	"github.com/iwvelando/installment-calc/pkg/loans"
	"go.uber.org/zap"
)

func TestLoadConfigurationMissingFile(t *testing.T) {
	conf, err := LoadConfiguration(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Output.Format != constants.OutputFormatPretty {
		t.Errorf("expected pretty output by default, got %q", conf.Output.Format)
	}
	if conf.Store.Backend != constants.StoreBackendFile {
		t.Errorf("expected file store by default, got %q", conf.Store.Backend)
	}
	if conf.Store.Key != constants.DefaultStoreKey {
		t.Errorf("expected default store key, got %q", conf.Store.Key)
	}
	if conf.Output.PreviewRows != constants.SchedulePreviewRows {
		t.Errorf("expected %d preview rows, got %d", constants.SchedulePreviewRows, conf.Output.PreviewRows)
	}
	if conf.Server.Address != constants.DefaultServerAddress {
		t.Errorf("expected default server address, got %q", conf.Server.Address)
	}
	if conf.MaxBodyBytes() != constants.DefaultMaxBodyBytes {
		t.Errorf("expected default body limit, got %d", conf.MaxBodyBytes())
	}
	if conf.DefaultInputs() != loans.DefaultInputs() {
		t.Errorf("expected hardcoded loan defaults, got %+v", conf.DefaultInputs())
	}
}

func TestLoadConfigurationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte(`logging:
  level: debug
  format: console
output:
  format: csv
  locale: en-US
store:
  backend: redis
  redisAddr: redis:6379
  redisPrefix: "calc:"
  key: myLoan
server:
  address: 127.0.0.1:9000
  maxBodySize: 1M
defaults:
  price: 20000000
  months: 12
  method: reducing
presets:
  - name: phone-9
    label: Phone, 9 months
    inputs:
      months: 9
      monthlyRate: 1.5
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" {
		t.Errorf("unexpected logging config %+v", conf.Logging)
	}
	if conf.Output.Format != constants.OutputFormatCSV || conf.Output.Locale != "en-US" {
		t.Errorf("unexpected output config %+v", conf.Output)
	}
	if conf.Store.Backend != "redis" || conf.Store.RedisAddr != "redis:6379" || conf.Store.Key != "myLoan" {
		t.Errorf("unexpected store config %+v", conf.Store)
	}
	if opts := conf.StoreOptions(); opts.RedisPrefix != "calc:" || opts.Backend != "redis" {
		t.Errorf("unexpected store options %+v", opts)
	}

	if conf.Server.Address != "127.0.0.1:9000" || conf.MaxBodyBytes() != 1024*1024 {
		t.Errorf("unexpected server config %+v", conf.Server)
	}

	defaults := conf.DefaultInputs()
	if defaults.Price != 20000000 || defaults.Months != 12 || defaults.Method != loans.MethodReducing {
		t.Errorf("expected configured defaults, got %+v", defaults)
	}
	if defaults.DownPaymentAmount != 3000000 {
		t.Errorf("expected unspecified defaults to remain, got %+v", defaults)
	}

	presets := conf.AllPresets()
	preset, ok := loans.FindPreset(presets, "phone-9")
	if !ok {
		t.Fatalf("expected configured preset in %+v", presets)
	}
	if preset.Inputs.Months == nil || *preset.Inputs.Months != 9 {
		t.Errorf("expected preset months 9, got %+v", preset.Inputs)
	}
	if len(presets) != len(loans.DefaultPresets())+1 {
		t.Errorf("expected built-in presets to be kept, got %d presets", len(presets))
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("INSTALLMENT_STORE_BACKEND", "memory")
	t.Setenv("INSTALLMENT_OUTPUT_FORMAT", "text")

	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Store.Backend != constants.StoreBackendMemory {
		t.Errorf("expected env override of store backend, got %q", conf.Store.Backend)
	}
	if conf.Output.Format != constants.OutputFormatText {
		t.Errorf("expected env override of output format, got %q", conf.Output.Format)
	}
}

func TestLoadConfigurationFromReaderInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Bad output format", "output:\n  format: xml\n"},
		{"Bad store backend", "store:\n  backend: sqlite\n"},
		{"Empty key", "store:\n  key: \" \"\n"},
		{"Bad body size", "server:\n  maxBodySize: 2X\n"},
		{"Unnamed preset", "presets:\n  - label: nameless\n"},
		{"Malformed yaml", "output: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfigurationFromReader(strings.NewReader(tt.yaml)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFormatter(t *testing.T) {
	conf, err := LoadConfigurationFromReader(strings.NewReader("output:\n  locale: en-US\n  symbol: VND\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}
	if got := conf.Formatter().Currency(1500000); got != "1,500,000 VND" {
		t.Errorf("Currency() = %q, expected %q", got, "1,500,000 VND")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    LoggingConfig
		override  string
		expectErr bool
	}{
		{name: "Defaults", config: LoggingConfig{}},
		{name: "Console debug", config: LoggingConfig{Level: "debug", Format: "console"}},
		{name: "Override wins", config: LoggingConfig{Level: "bogus"}, override: "warn"},
		{name: "Invalid level", config: LoggingConfig{Level: "verbose"}, expectErr: true},
		{name: "Invalid format", config: LoggingConfig{Format: "xml"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config, tt.override)
			if (err != nil) != tt.expectErr {
				t.Fatalf("NewLogger() error = %v, expectErr %v", err, tt.expectErr)
			}
			if logger != nil {
				_ = logger.Sync()
			}
		})
	}
}

func TestNewLoggerOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "calc.log")

	logger, err := NewLogger(LoggingConfig{OutputFile: path}, "")
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("hello", zap.String("op", "config.TestNewLoggerOutputFile"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("expected log line in file, got %q", string(data))
	}
}
