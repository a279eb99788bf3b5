package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/gglang/the-voices-sub000/logging"
)

// Build opens every sink enabled in cfg. On error, sinks opened so far are
// closed before returning.
func Build(cfg logging.Config, console io.Writer) ([]logging.NamedSink, error) {
	var out []logging.NamedSink
	fail := func(err error) ([]logging.NamedSink, error) {
		for _, named := range out {
			_ = named.Sink.Close(context.Background())
		}
		return nil, err
	}

	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			out = append(out, logging.NamedSink{Name: name, Sink: NewConsoleSink(console, cfg.Console)})
		case "json":
			if cfg.JSON.FilePath == "" {
				out = append(out, logging.NamedSink{Name: name, Sink: NewJSON(console, cfg.JSON.FlushInterval)})
				continue
			}
			sink, err := OpenJSONFile(cfg.JSON.FilePath, cfg.JSON.FlushInterval)
			if err != nil {
				return fail(fmt.Errorf("sinks: open json: %w", err))
			}
			out = append(out, logging.NamedSink{Name: name, Sink: sink})
		case "archive":
			if cfg.Archive.Dir == "" {
				return fail(fmt.Errorf("sinks: archive enabled without a directory"))
			}
			out = append(out, logging.NamedSink{Name: name, Sink: NewArchive(cfg.Archive.Dir, cfg.Archive.Prefix)})
		case "incidents":
			sink, err := OpenIncidents(cfg.Incidents.Path)
			if err != nil {
				return fail(fmt.Errorf("sinks: open incidents: %w", err))
			}
			out = append(out, logging.NamedSink{Name: name, Sink: sink, Categories: IncidentCategories})
		case "memory":
			out = append(out, logging.NamedSink{Name: name, Sink: NewMemorySink()})
		default:
			return fail(fmt.Errorf("sinks: unknown sink %q", name))
		}
	}
	return out, nil
}
