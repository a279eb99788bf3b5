// Package observability holds opt-in debugging surfaces for the server.
package observability

import (
	nethttp "net/http"
	"net/http/pprof"
)

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	EnablePprofTrace bool
}

// Wrap mounts the pprof handlers under /debug/pprof/ in front of next when
// profiling is enabled; otherwise next is returned unchanged.
func (c Config) Wrap(next nethttp.Handler) nethttp.Handler {
	if !c.EnablePprofTrace {
		return next
	}
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/", next)
	return mux
}
