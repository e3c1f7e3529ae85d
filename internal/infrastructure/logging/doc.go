// Package logging builds the structured slog loggers used across
// BudgetWise.
//
//	logging:
//	  level: info    # debug, info, warn, error
//	  format: json   # json, text
//	  output: stdout # stdout, stderr
//
// Records carry service=budgetwise and the build version. Attributes named
// password, token, secret or authorization are replaced with [REDACTED]
// whatever the caller passes; e-mail addresses should go through MaskEmail.
package logging
