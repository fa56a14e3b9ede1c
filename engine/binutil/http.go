package binutil

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// SetupHTTPServer serves /debug/pprof and /debug/vars on addr, nothing is served if addr is empty
func SetupHTTPServer(addr string) {
	if addr == "" {
		gwlog.Infof("http server not enabled")
		return
	}

	gwlog.Infof("http server listening on http://%s/debug/pprof/ ... available commands: ", addr)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/heap", addr)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/profile", addr)
	gwlog.Infof("    curl http://%s/debug/vars", addr)
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			gwlog.Errorf("http server stopped: %s", err)
		}
	}()
}
