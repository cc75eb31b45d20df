// Package logging provides structured logging for pyexpl.
//
// It wraps log/slog with a JSON handler and carries persistent context
// attributes (component, runner, request id) on child loggers.
//
// The TUI owns the terminal, so interactive sessions always log to a file
// (<state>/pyexpl.log by default). Headless commands may log to stderr.
//
//	logger, err := logging.NewLogger(logging.Options{Path: path, Level: "INFO", MaxSizeMB: 10})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithComponent("dispatch").WithRunner("python3-13").Error("run failed", "error", err)
//
// Output:
//
//	{"time":"...","level":"ERROR","msg":"run failed","component":"dispatch","runner":"python3-13","error":"..."}
//
// When the log file exceeds MaxSizeMB at open it is moved to <path>.1 and a
// fresh file is started.
package logging
