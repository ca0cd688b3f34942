// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/installment-calc/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatText:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatText, format)
}

// ValidateStoreBackend checks if the store backend is one of the supported backends.
func ValidateStoreBackend(backend string) error {
	switch backend {
	case constants.StoreBackendMemory, constants.StoreBackendFile, constants.StoreBackendRedis:
		return nil
	}
	return fmt.Errorf("expected store backend of %s, %s or %s, got %s",
		constants.StoreBackendMemory, constants.StoreBackendFile, constants.StoreBackendRedis, backend)
}
