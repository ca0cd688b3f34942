// Package constants provides shared constants for the installment-calc application.
package constants

// Loan input limits
const (
	// MinMonths is the shortest allowed term
	MinMonths = 1

	// MaxMonths is the longest allowed term
	MaxMonths = 120

	// MaxMonetaryAmount caps the price and the extra fees
	MaxMonetaryAmount = 1e15

	// MaxDownPaymentPercent caps the down payment percentage
	MaxDownPaymentPercent = 95.0

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Default loan parameters, used when nothing has been persisted yet.
const (
	DefaultPrice              = 15000000.0
	DefaultDownPaymentAmount  = 3000000.0
	DefaultDownPaymentPercent = 20.0
	DefaultMonthlyRate        = 2.5
	DefaultMonths             = 6
	DefaultExtraFees          = 0.0
)

// Display constants
const (
	// SchedulePreviewRows is the number of schedule rows shown on screen; exports
	// always carry the full schedule.
	SchedulePreviewRows = 12
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV schedule export
	OutputFormatCSV = "csv"

	// OutputFormatText is the plain-text summary export
	OutputFormatText = "text"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "INSTALLMENT"

	// DefaultStoreKey is the key the loan record is persisted under
	DefaultStoreKey = "homeCreditCalc"

	// DefaultStorePath is the directory used by the file store
	DefaultStorePath = ".installment-calc"
)

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendFile   = "file"
	StoreBackendRedis  = "redis"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodyBytes limits JSON request bodies (64 KB)
	DefaultMaxBodyBytes int64 = 64 * 1024

	// DefaultRedisAddr is the default redis address
	DefaultRedisAddr = "localhost:6379"
)
