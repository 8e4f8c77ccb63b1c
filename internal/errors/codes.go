package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Physical model errors
	ErrInvalidMaterial    ErrorCode = "invalid_material"
	ErrInvalidGeometry    ErrorCode = "invalid_geometry"
	ErrInvalidBloodType   ErrorCode = "invalid_blood_product"
	ErrBelowAbsoluteZero  ErrorCode = "below_absolute_zero"
	ErrInvalidThermalMass ErrorCode = "invalid_thermal_mass"
	ErrUnknownProduct     ErrorCode = "unknown_product"
	ErrUnknownMaterial    ErrorCode = "unknown_material"

	// Safety errors
	ErrInvalidSafetyLimits ErrorCode = "invalid_safety_limits"

	// Control errors
	ErrInvalidTransition ErrorCode = "invalid_transition"
	ErrTargetOutOfRange  ErrorCode = "target_out_of_range"
	ErrSystemDisabled    ErrorCode = "system_disabled"

	// Initialization and shutdown errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:            "Internal error occurred",
	ErrInvalidArgument:     "Invalid argument provided",
	ErrInvalidConfig:       "Invalid configuration",
	ErrReadConfig:          "Failed to read configuration",
	ErrBindFlags:           "Failed to bind flags",
	ErrInvalidInterval:     "Invalid interval value",
	ErrInvalidLogLevel:     "Invalid log level",
	ErrInvalidMaterial:     "Invalid material properties",
	ErrInvalidGeometry:     "Invalid geometric properties",
	ErrInvalidBloodType:    "Invalid blood product properties",
	ErrBelowAbsoluteZero:   "Temperature below absolute zero",
	ErrInvalidThermalMass:  "Invalid thermal mass parameters",
	ErrUnknownProduct:      "Unknown blood product preset",
	ErrUnknownMaterial:     "Unknown material preset",
	ErrInvalidSafetyLimits: "Invalid safety limit ordering",
	ErrInvalidTransition:   "Invalid control mode transition",
	ErrTargetOutOfRange:    "Target temperature outside safe range",
	ErrSystemDisabled:      "System is disabled",
	ErrInitFailed:          "Initialization failed",
	ErrShutdownFailed:      "Shutdown failed",
	ErrOperationFailed:     "Operation failed",
	ErrTimeout:             "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
