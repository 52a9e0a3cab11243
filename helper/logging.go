package helper

import (
	"fmt"
	"io"

	gelf "github.com/seatgeek/logrus-gelf-formatter"
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging sets the global logrus level, formatter and output.
// format is one of text, json or gelf.
func ConfigureLogging(level, format string, out io.Writer) error {
	// convert the human passed log level into logrus levels
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}

	var formatter log.Formatter
	switch format {
	case "", "text":
		formatter = &log.TextFormatter{}
	case "json":
		formatter = &log.JSONFormatter{}
	case "gelf":
		formatter = new(gelf.GelfFormatter)
	default:
		return fmt.Errorf("Invalid log format %q: text, json or gelf", format)
	}

	log.SetLevel(lvl)
	log.SetFormatter(formatter)
	log.SetOutput(out)

	return nil
}
