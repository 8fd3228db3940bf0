package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/brundin/cudy-stats-exporter/scraper"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/promlog"
	"github.com/prometheus/common/promlog/flag"
	"github.com/prometheus/common/version"
	"github.com/prometheus/exporter-toolkit/web"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	var (
		listenAddress = kingpin.Flag("web.listen-address", "Address to listen on for web interface and telemetry.").Default(":9422").String()
		metricsPath   = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
		host          = kingpin.Flag("cudy.host", "Cudy router host").Default("192.168.10.1").String()
		user          = kingpin.Flag("cudy.user", "User for logging into the admin interface").Default("admin").String()
		pass          = kingpin.Flag("cudy.pass", "User password").Default("admin").String()
		model         = kingpin.Flag("cudy.model", "Router model for feature gating; autodetected from the login page when empty").Default("").String()
		deviceList    = kingpin.Flag("cudy.device-list", "Comma-separated MACs or hostnames to export per-device speeds for").Default("").String()
		featuresFile  = kingpin.Flag("cudy.features-file", "YAML file overriding the built-in per-model feature matrix").Default("").String()
		timeout       = kingpin.Flag("cudy.timeout", "Overall timeout for one poll of the router").Default("1m").Duration()
	)
	promlogConfig := &promlog.Config{}
	flag.AddFlags(kingpin.CommandLine, promlogConfig)
	kingpin.Version(version.Print("cudy_exporter"))
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := promlog.New(promlogConfig)

	scrpr, err := scraper.New(*host, *user, *pass, logger)
	if err != nil {
		level.Error(logger).Log("msg", "Error creating scraper", "err", err)

		os.Exit(1)
	}

	matrix, err := scraper.LoadFeatureMatrix(*featuresFile)
	if err != nil {
		level.Error(logger).Log("msg", "Error loading feature matrix", "err", err)

		os.Exit(1)
	}
	scrpr.Features = matrix

	routerModel := *model
	if routerModel == "" {
		routerModel = scrpr.GetModel(context.Background())
		level.Info(logger).Log("msg", "detected router model", "model", routerModel)
	}

	exporter := NewExporter(scrpr, routerModel, scraper.Options{DeviceList: *deviceList}, *timeout)
	prometheus.MustRegister(exporter)
	prometheus.MustRegister(version.NewCollector("cudy_exporter"))

	http.Handle(*metricsPath, promhttp.Handler())
	registerActionHandlers(scrpr)
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
             <head><title>Cudy Router Exporter</title></head>
             <body>
             <h1>Cudy Router Exporter</h1>
             <p><a href='` + *metricsPath + `'>Metrics</a></p>
             </body>
             </html>`))
	})
	srv := &http.Server{Addr: *listenAddress}
	if err := web.ListenAndServe(srv, "", logger); err != nil {
		level.Error(logger).Log("msg", "Error starting HTTP server", "err", err)

		os.Exit(1)
	}
}

type actionResponse struct {
	Status   int    `json:"status"`
	Response string `json:"response"`
}

func writeAction(w http.ResponseWriter, status int, response string) {
	w.Header().Set("Content-Type", "application/json")
	if status == 0 {
		w.WriteHeader(http.StatusBadGateway)
	}
	json.NewEncoder(w).Encode(actionResponse{Status: status, Response: response})
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// registerActionHandlers exposes the router control actions on a small
// JSON API. Actions proxy straight through to the admin interface; the
// response carries the router's final HTTP status and a body excerpt.
func registerActionHandlers(s *scraper.Scraper) {
	http.HandleFunc("/api/v1/reboot", func(w http.ResponseWriter, r *http.Request) {
		if !requirePOST(w, r) {
			return
		}
		status, response := s.RebootRouter(r.Context())
		writeAction(w, status, response)
	})

	http.HandleFunc("/api/v1/modem/reset", func(w http.ResponseWriter, r *http.Request) {
		if !requirePOST(w, r) {
			return
		}
		status, response := s.Restart5GConnection(r.Context())
		writeAction(w, status, response)
	})

	http.HandleFunc("/api/v1/modem/band", func(w http.ResponseWriter, r *http.Request) {
		if !requirePOST(w, r) {
			return
		}
		band := r.FormValue("band")
		if band == "" {
			http.Error(w, "band parameter required", http.StatusBadRequest)
			return
		}
		status, response := s.Switch5GBand(r.Context(), band)
		writeAction(w, status, response)
	})

	http.HandleFunc("/api/v1/sms/send", func(w http.ResponseWriter, r *http.Request) {
		if !requirePOST(w, r) {
			return
		}
		phone := r.FormValue("phone")
		message := r.FormValue("message")
		if phone == "" || message == "" {
			http.Error(w, "phone and message parameters required", http.StatusBadRequest)
			return
		}
		status, response := s.SendSMS(r.Context(), phone, message)
		writeAction(w, status, response)
	})

	http.HandleFunc("/api/v1/modem/at", func(w http.ResponseWriter, r *http.Request) {
		if !requirePOST(w, r) {
			return
		}
		command := r.FormValue("command")
		if command == "" {
			http.Error(w, "command parameter required", http.StatusBadRequest)
			return
		}
		status, response := s.SendATCommand(r.Context(), command)
		writeAction(w, status, response)
	})

	http.HandleFunc("/api/v1/mesh/reboot", func(w http.ResponseWriter, r *http.Request) {
		if !requirePOST(w, r) {
			return
		}
		mac := r.FormValue("mac")
		if mac == "" {
			http.Error(w, "mac parameter required", http.StatusBadRequest)
			return
		}
		status, response := s.RebootMeshDevice(r.Context(), mac)
		writeAction(w, status, response)
	})

	http.HandleFunc("/api/v1/mesh/led", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			mac := r.FormValue("mac")
			if mac == "" {
				http.Error(w, "mac parameter required", http.StatusBadRequest)
				return
			}
			on := s.GetMeshLEDState(r.Context(), mac)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]bool{"enabled": on})
		case http.MethodPost:
			mac := r.FormValue("mac")
			enabled, err := strconv.ParseBool(r.FormValue("enabled"))
			if mac == "" || err != nil {
				http.Error(w, "mac and enabled parameters required", http.StatusBadRequest)
				return
			}
			status, response := s.SetMeshLED(r.Context(), mac, enabled)
			writeAction(w, status, response)
		default:
			http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/api/v1/led", func(w http.ResponseWriter, r *http.Request) {
		if !requirePOST(w, r) {
			return
		}
		enabled, err := strconv.ParseBool(r.FormValue("enabled"))
		if err != nil {
			http.Error(w, "enabled parameter required", http.StatusBadRequest)
			return
		}
		status, response := s.SetMainRouterLED(r.Context(), enabled)
		writeAction(w, status, response)
	})
}
