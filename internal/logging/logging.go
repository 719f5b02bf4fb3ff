package logging

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// New builds the process logger. Each call gets its own session id so output from
// separate runs sharing a log file can be told apart.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "vulkan",
		Level:           lvl,
	})

	return logger.With("session", uuid.NewString()), nil
}
