package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credentials"
	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/notify"
	"github.com/muurk/wifiprov/internal/portal"
	"github.com/muurk/wifiprov/internal/portal/captive"
	"github.com/muurk/wifiprov/internal/portal/web"
	"github.com/muurk/wifiprov/internal/radio"
	"github.com/muurk/wifiprov/internal/supervisor"
	"github.com/muurk/wifiprov/internal/version"
)

const statusShutdownTimeout = 2 * time.Second

// daemon is the assembled connectivity manager
type daemon struct {
	cfg     *config.Config
	radio   radio.Radio
	store   *credentials.Store
	portal  *portal.Portal
	form    *web.Server
	sup     *supervisor.Supervisor
	hub     *notify.Hub
	metrics *notify.Metrics

	statusLn  net.Listener
	statusSrv *http.Server
}

// newDaemon wires every component from cfg. store is used as-is when
// non-nil; otherwise the leveldb store at cfg.StorePath() is opened.
func newDaemon(cfg *config.Config, store *credentials.Store) (*daemon, error) {
	d := &daemon{cfg: cfg, store: store}

	r, err := newRadio(cfg)
	if err != nil {
		return nil, err
	}
	d.radio = r

	if d.store == nil {
		path, err := cfg.StorePath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate credential store: %w", err)
		}
		d.store, err = credentials.OpenLevelDB(path, credentials.WithPolicy(cfg.CapacityPolicy()))
		if err != nil {
			return nil, err
		}
	}

	// The supervisor is created after the portal; these read it lazily.
	status := func() supervisor.Status { return d.sup.Snapshot() }

	d.form = web.NewServer(cfg.Portal.HTTPListen, web.WithStatus(func() any { return status() }))
	opts := []portal.Option{
		portal.WithAPCredentials(cfg.AccessPoint.SSID, cfg.AccessPoint.Password),
		portal.WithFormServer(d.form),
	}

	if cfg.Portal.DNSListen != "" {
		dnsSrv, err := captive.New(cfg.Portal.DNSListen, net.ParseIP(cfg.AccessPoint.Address))
		if err != nil {
			return nil, multierr.Append(err, d.store.Close())
		}
		opts = append(opts, portal.WithCaptiveDNS(dnsSrv))
	}

	if cfg.Portal.Advertise {
		opts = append(opts, portal.WithAdvertiser(d.newAdvertiser()))
	}

	d.portal = portal.New(d.radio, d.store, opts...)

	d.hub = notify.NewHub(status)
	d.metrics = notify.NewMetrics(status)
	d.metrics.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	notifier := notify.Multi(notify.LogNotifier{Status: status}, d.hub, d.metrics)

	d.sup = supervisor.New(d.radio, d.store, d.portal,
		supervisor.WithNotifier(notifier),
		supervisor.WithAttemptTimeout(cfg.Supervisor.AttemptTimeout.D()),
		supervisor.WithStatusInterval(cfg.Supervisor.StatusInterval.D()),
		supervisor.WithReconnectAttempts(cfg.Supervisor.ReconnectAttempts),
		supervisor.WithConfigTimeout(cfg.Portal.ConfigTimeout.D()),
	)
	d.portal.Attach(d.sup)

	return d, nil
}

// newRadio picks the simulator or the nmcli backend
func newRadio(cfg *config.Config) (radio.Radio, error) {
	if cfg.Simulator.Enabled {
		sim := radio.NewSim(cfg.Simulator.ConnectPolls)
		for _, n := range cfg.Simulator.Networks {
			sim.AddNetwork(n.SSID, n.Secret)
		}
		logging.Info("Using simulated radio", zap.Int("networks", len(cfg.Simulator.Networks)))
		return sim, nil
	}

	nm := radio.NewNMCLI(cfg.Radio.Interface)
	if err := nm.CheckAvailable(); err != nil {
		return nil, fmt.Errorf("radio unavailable (use --simulate to run without one): %w", err)
	}
	return nm, nil
}

func (d *daemon) newAdvertiser() *discovery.Advertiser {
	instance := d.cfg.Portal.Instance
	if instance == "" {
		host, _ := os.Hostname()
		instance = "wifiprov-" + host
	}

	port := discovery.DefaultPort
	if _, p, err := net.SplitHostPort(d.cfg.Portal.HTTPListen); err == nil {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			port = n
		}
	}

	return discovery.NewAdvertiser(instance, port, func() []string {
		session := ""
		if s := d.sup.Session(); s != nil {
			session = s.ID
		}
		return discovery.Text(
			discovery.TxtAccessPoint, d.cfg.AccessPoint.SSID,
			discovery.TxtSession, session,
			discovery.TxtVersion, version.Short(),
		)
	})
}

// statusHandler serves the local status endpoint
func (d *daemon) statusHandler() http.Handler {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/events", d.hub)
	router.Handler(http.MethodGet, "/metrics", d.metrics.Handler())
	router.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(d.sup.Snapshot()); err != nil {
			logging.Debug("Status encode failed", zap.Error(err))
		}
	})
	router.GET("/version", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(version.Get())
	})
	return router
}

// startStatus opens the status listener. An empty status.listen disables it.
func (d *daemon) startStatus() error {
	if d.cfg.Status.Listen == "" || d.statusLn != nil {
		return nil
	}
	ln, err := net.Listen("tcp", d.cfg.Status.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.cfg.Status.Listen, err)
	}
	d.statusLn = ln
	d.statusSrv = &http.Server{
		Handler:           d.statusHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := d.statusSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Status server failed", zap.Error(err))
		}
	}()
	logging.Info("Status endpoint listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// statusAddr is the bound status address, or "" when disabled
func (d *daemon) statusAddr() string {
	if d.statusLn == nil {
		return ""
	}
	return d.statusLn.Addr().String()
}

// run drives the supervisor until ctx is done, then tears everything down
func (d *daemon) run(ctx context.Context) error {
	if err := d.startStatus(); err != nil {
		return multierr.Append(err, d.close())
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go d.hub.Run(hubCtx)

	logging.Info("Supervisor starting",
		zap.Int("saved_networks", d.store.Len()),
		zap.String("policy", d.store.Policy().String()),
		zap.String("version", version.Short()))

	err := d.sup.Run(ctx, d.cfg.Supervisor.TickInterval.D())

	return multierr.Append(err, d.close())
}

// close releases the status server and the store
func (d *daemon) close() error {
	var err error
	if d.statusSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), statusShutdownTimeout)
		defer cancel()
		err = multierr.Append(err, d.statusSrv.Shutdown(ctx))
	}
	if d.store != nil {
		err = multierr.Append(err, d.store.Close())
	}
	return err
}
