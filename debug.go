package szservo

import (
	"context"

	"log/slog"
)

const (
	// levelTrace logs individual FSM transitions. Very verbose: one line
	// per divider tick that changes state.
	levelTrace slog.Level = slog.LevelDebug - 1
)

func (c *Controller) logerr(msg string, attrs ...slog.Attr) {
	c.logattrs(slog.LevelError, msg, attrs...)
}

func (c *Controller) info(msg string, attrs ...slog.Attr) {
	c.logattrs(slog.LevelInfo, msg, attrs...)
}

func (c *Controller) debug(msg string, attrs ...slog.Attr) {
	c.logattrs(slog.LevelDebug, msg, attrs...)
}

func (c *Controller) trace(msg string, attrs ...slog.Attr) {
	c.logattrs(levelTrace, msg, attrs...)
}

func (c *Controller) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	if c.logger == nil || !c.logger.Handler().Enabled(context.Background(), level) {
		return
	}
	c.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
