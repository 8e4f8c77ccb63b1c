package telemetry

import "github.com/zkalam/smart-thermal-control/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Storage errors
	ErrStorageAccess          = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit            = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageClose           = errors.ErrorCode("telemetry_storage_close_failed")
	ErrSchemaInitFailed       = errors.ErrorCode("telemetry_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("telemetry_schema_validation_failed")
	ErrTransactionFailed      = errors.ErrorCode("telemetry_transaction_failed")
)
