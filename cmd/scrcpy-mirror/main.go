package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/fanap-infra/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	scrcpy "github.com/mobcast/scrcpy"
	"github.com/mobcast/scrcpy/wsbridge"
)

// set at build time
var version = "dev"

func main() {
	var (
		addr      string
		serverJar string
	)

	rootCmd := &cobra.Command{
		Use:   "scrcpy-mirror",
		Short: "Mirror Android device screens to websocket viewers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(addr, serverJar)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	rootCmd.Flags().StringVar(&serverJar, "server-jar", "plugins/scrcpy-server.jar",
		"local path of the scrcpy server jar pushed to devices")
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func serve(addr, serverJar string) error {
	provider := scrcpy.NewProvider(scrcpy.SessionOptions{ServerJar: serverJar})

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stream/{serial}", func(w http.ResponseWriter, req *http.Request) {
		serial := chi.URLParam(req, "serial")
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Debugv("Stream Upgrade", "error", err)
			return
		}
		defer ws.Close()

		// The session outlives the handler's request context: it ends when
		// the viewer disconnects or the device stream dies.
		session, err := provider.OpenSession(context.Background(), serial, wsbridge.NewSender(ws))
		if err != nil {
			return
		}
		defer session.Close()

		// drain viewer messages; an error means the viewer went away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	// elementary-stream side channel: RTP packets of an already-open
	// session, one per binary message
	r.Get("/rtp/{serial}", func(w http.ResponseWriter, req *http.Request) {
		serial := chi.URLParam(req, "serial")
		session, ok := provider.Session(serial)
		if !ok {
			http.Error(w, "device is not being mirrored", http.StatusNotFound)
			return
		}
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Debugv("RTP Upgrade", "error", err)
			return
		}
		defer ws.Close()

		id := session.RTP().AddListener(wsbridge.NewRTPListener(ws))
		defer session.RTP().RemoveListener(id)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	log.Infov("Mirror Server Listening", "addr", addr)
	return http.ListenAndServe(addr, r)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(*cobra.Command, []string) {
			fmt.Println(version)
		},
	}
}
