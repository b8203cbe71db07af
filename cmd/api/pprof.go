package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"

	"github.com/noah-isme/stationery-pos/internal/common"
)

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "goroutine", "heap", "mutex", "block"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

// protectPprof puts basic auth in front of the profiler when a user is set.
func protectPprof(next http.Handler, user, pass string) http.Handler {
	if user == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "profiler requires credentials", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
