// Package ui serves a small local admin console over websockets: node
// information, service control and exchange overview, gated by the console
// secret from the configuration.
package ui

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/spauka/secretsanta/internal/config"
)

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

var done = make(chan struct{})

func Handle(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String("config"))
	if err != nil {
		return err
	}

	console := &console{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/", serveIndex)
	mux.HandleFunc("/ws", console.serveWs)

	addr := cliCtx.String("addr")
	url := "http://" + addr

	noBrowser := cliCtx.Bool("no-browser")
	if !noBrowser {
		go func() {
			time.Sleep(1 * time.Second)
			fmt.Println("Opening", url, "in your default browser...")
			var err error
			switch runtime.GOOS {
			case "linux":
				err = exec.Command("xdg-open", url).Start()
			case "windows":
				err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
			case "darwin":
				err = exec.Command("open", url).Start()
			default:
				err = ErrUnsupportedPlatform
			}
			if err != nil {
				log.Println(err)
			}
		}()
	}

	fmt.Println("Console is running at", url)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	select {
	case <-done:
	case <-cliCtx.Context.Done():
	}

	log.Println("Shutting down the console...")

	return srv.Shutdown(cliCtx.Context)
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Secret Santa Console</title></head>
<body>
<h1>Secret Santa Console</h1>
<p>Connect a websocket client to <code>/ws</code> and authenticate with the
console secret. Commands: <code>node-info</code>, <code>service-status</code>,
<code>service-command &lt;start|stop|restart&gt;</code>,
<code>exchange-list</code>, <code>exit</code>.</p>
</body>
</html>
`

func serveIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, indexPage)
}
