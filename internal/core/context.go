// Package core provides the component lifecycle shared by deltime services.
package core

import "log/slog"

// AppContext carries the resources shared by components.
type AppContext struct {
	// Logger for the current component scope.
	Logger *slog.Logger

	// DataDir is the root directory for persistent data (history database).
	DataDir string

	parentLogger *slog.Logger
}

// NewAppContext creates an AppContext with the given base logger and data
// directory.
func NewAppContext(logger *slog.Logger, dataDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:       logger,
		DataDir:      dataDir,
		parentLogger: logger,
	}
}

// ForComponent returns an AppContext whose logger carries the component name.
func (ctx *AppContext) ForComponent(name string) *AppContext {
	return &AppContext{
		Logger:       ctx.parentLogger.With("component", name),
		DataDir:      ctx.DataDir,
		parentLogger: ctx.parentLogger,
	}
}
