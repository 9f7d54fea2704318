package zonesync

import (
	"os"

	"github.com/op/go-logging"
)

// Log is the package-level logger shared by every zonesync component.
var Log = logging.MustGetLogger("zonesync")

func init() {
	var format = logging.MustStringFormatter(`%{color}%{time:15:04:05.000} ▶ %{level:.4s} %{shortfile}%{color:reset} %{message}`)
	var backend = logging.NewLogBackend(os.Stdout, "", 0)
	backendFormatter := logging.NewBackendFormatter(backend, format)

	logging.SetBackend(backendFormatter)
}

// SetLoggingLevel adjusts the log level by name ("debug", "info",
// "warning", "error", "critical"). Unrecognized names are ignored.
func SetLoggingLevel(level string) {
	parsed, err := logging.LogLevel(level)

	if err != nil {
		return
	}

	logging.SetLevel(parsed, "zonesync")
}