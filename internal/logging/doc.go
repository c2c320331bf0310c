// Package logging provides structured logging for wifiprov.
//
// This package wraps a zap logger with convenience functions for common logging
// patterns used throughout the connectivity supervisor and configuration portal.
//
// # Log Levels
//
//   - Debug: Per-tick detail (status polls, DNS queries)
//   - Info: State transitions, connection attempts, portal start/stop
//   - Warn: Failed attempts, corrupt storage recovered as empty, notifier faults
//   - Error: Startup failures
//
// # Structured Logging
//
//	logging.Info("Credential saved",
//	    zap.String("ssid", "HomeNet"),
//	    zap.Int("count", 2),
//	)
//
// Domain helpers keep field names consistent:
//
//	logging.LogStateChange("Connected", "Recovering", "HomeNet", 0)
//	logging.LogConnectAttempt("HomeNet", "timeout", err)
//	logging.LogPortalEvent("started", zap.String("ap_ssid", "wifiprov-setup"))
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// With an empty level the WIFIPROV_LOG_LEVEL environment variable is consulted;
// when that is also empty the logger is a no-op.
package logging
