// Command pi-cooler drives a Raspberry Pi cooler fan, power button and LEDs,
// and publishes what they do to MQTT and a local status page.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sweeney/pi-cooler/internal/config"
	"github.com/sweeney/pi-cooler/internal/events"
	"github.com/sweeney/pi-cooler/internal/gpio"
	"github.com/sweeney/pi-cooler/internal/hardware"
	"github.com/sweeney/pi-cooler/internal/logic"
	"github.com/sweeney/pi-cooler/internal/metrics"
	"github.com/sweeney/pi-cooler/internal/mqtt"
	"github.com/sweeney/pi-cooler/internal/sampler"
	"github.com/sweeney/pi-cooler/internal/setup"
	"github.com/sweeney/pi-cooler/internal/status"
	"github.com/sweeney/pi-cooler/internal/web"
)

// statusTick paces MQTT status refreshes and heartbeat checks.
const statusTick = 10 * time.Second

type options struct {
	driver    string
	chip      string
	broker    string
	httpAddr  string
	heartbeat time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "pi-cooler [CONFIG_FILE]",
		Short:         "Cooler fan, power button and LED daemon for the Raspberry Pi",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), *opts, configPath(args))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.driver, "driver", "gpiocdev", "GPIO backend (gpiocdev or periph)")
	pf.StringVar(&opts.chip, "chip", gpio.DefaultChip, "GPIO character device for the gpiocdev backend")

	pf.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable)")
	pf.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	pf.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")

	root.AddCommand(newRunCmd(opts), newSetupCmd(opts), newValidateCmd(), newTempCmd())
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run [CONFIG_FILE]",
		Short: "Run the daemon (the default when no command is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), *opts, configPath(args))
		},
	}
}

func newSetupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "setup [CONFIG_FILE]",
		Short: "Ask for the pins, test the devices and write the config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := openDriver(opts.driver, opts.chip)
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer driver.Close()

			reg := gpio.NewRegistry(driver)
			_, err = setup.New(cmd.InOrStdin(), cmd.OutOrStdout(), reg).Run(cmd.Context(), configPath(args))
			return err
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [CONFIG_FILE]",
		Short: "Check the config file and print the effective settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(args)
			s, err := config.Load(path)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), path, s)
			return nil
		},
	}
}

func newTempCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "temp [CONFIG_FILE]",
		Short: "Run the temperature command once and print the reading",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(configPath(args))
			if err != nil {
				return err
			}
			re, err := s.TemperaturePattern()
			if err != nil {
				return fmt.Errorf("regexTemperature: %w", err)
			}
			temp, ok := sampler.New(s.CmdTemperature, re).Sample(cmd.Context())
			if !ok {
				return fmt.Errorf("no temperature reading from %q", s.CmdTemperature)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f\n", temp)
			return nil
		},
	}
}

func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return config.DefaultPath
}

func openDriver(name, chip string) (gpio.Driver, error) {
	switch name {
	case "gpiocdev":
		d, err := gpio.NewChipDriver(chip)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "periph":
		d, err := gpio.NewPeriphDriver()
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", name)
	}
}

// loadOrSetup loads the config at path, running the setup wizard first
// when the file does not exist yet.
func loadOrSetup(ctx context.Context, path string, reg *gpio.Registry, in io.Reader, out io.Writer) (*config.Settings, error) {
	if config.Exists(path) {
		return config.Load(path)
	}
	log.Printf("config: %s not found, starting setup", path)
	return setup.New(in, out, reg).Run(ctx, path)
}

func printSettings(w io.Writer, path string, s *config.Settings) {
	fmt.Fprintf(w, "config: %s\n", path)
	fmt.Fprintf(w, "  cooler fan:   %s\n", orNone(s.Pins.CoolerFan))
	fmt.Fprintf(w, "  power button: %s\n", orNone(s.Pins.PowerButton))
	fmt.Fprintf(w, "  power LED:    %s\n", orNone(s.Pins.PowerLED))
	fmt.Fprintf(w, "  status LED:   %s\n", orNone(s.Pins.StatusLED))
	if s.Pins.CoolerFan != "" {
		fmt.Fprintf(w, "  fan: reversed=%t temperature=%s run=%s\n", s.CoolerFanReversed, s.RunTemperature, s.RunTimeSpan)
		fmt.Fprintf(w, "  sensor: %s\n", s.CmdTemperature)
	}
	if s.Pins.PowerButton != "" {
		for i, c := range s.PowerButtonCmds {
			fmt.Fprintf(w, "  stage %d: %s\n", i, c)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func statusConfig(s *config.Settings, opts options) status.Config {
	return status.Config{
		Pins: status.Pins{
			CoolerFan:   s.Pins.CoolerFan,
			PowerButton: s.Pins.PowerButton,
			PowerLED:    s.Pins.PowerLED,
			StatusLED:   s.Pins.StatusLED,
		},
		FanReversed:    s.CoolerFanReversed,
		RunTemperature: s.RunTemperature,
		RunTimeSpan:    s.RunTimeSpan,
		ButtonCommands: s.PowerButtonCmds,
		Driver:         opts.driver,
		HeartbeatMs:    opts.heartbeat.Milliseconds(),
		Broker:         opts.broker,
		HTTPPort:       opts.httpAddr,
	}
}

func runDaemon(ctx context.Context, opts options, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	driver, err := openDriver(opts.driver, opts.chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer driver.Close()

	bus := events.New()
	mgr := hardware.NewManager(driver, hardware.WithBus(bus))

	settings, err := loadOrSetup(ctx, path, mgr.Registry(), os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)
	unsubMetrics := collector.Subscribe(bus)
	defer unsubMetrics()

	// MQTT
	var publisher mqtt.Publisher = disabledPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if opts.broker != "" {
		p := mqtt.NewRealPublisher(opts.broker, "pi-cooler")
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(settings, opts))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	st, err := mgr.Start(settings)
	if err != nil {
		return fmt.Errorf("start hardware: %w", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Printf("hardware: close: %v", err)
		}
	}()

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	// Bus events are handed to runLoop so it alone owns the activity counters.
	stop := make(chan struct{})
	defer close(stop)
	fanCh := make(chan events.FanChecked, 16)
	buttonCh := make(chan events.ButtonActivated, 4)
	unsubFan := bus.Subscribe(func(e events.FanChecked) {
		select {
		case fanCh <- e:
		case <-stop:
		}
	})
	defer unsubFan()
	unsubButton := bus.Subscribe(func(e events.ButtonActivated) {
		select {
		case buttonCh <- e:
		case <-stop:
		}
	})
	defer unsubButton()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- mgr.Run(ctx, st)
		close(done)
	}()

	notify(daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go watchdog(ctx, interval/2)
	}

	log.Printf("started: config=%s driver=%s broker=%q heartbeat=%v", path, opts.driver, opts.broker, opts.heartbeat)

	ticker := time.NewTicker(statusTick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := loopDeps{
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		collector:  collector,
		heartbeat:  opts.heartbeat,
		now:        time.Now,
	}
	err = runLoop(deps, ticker.C, sigCh, fanCh, buttonCh, done)

	notify(daemon.SdNotifyStopping)
	cancel()
	if lerr := <-done; lerr != nil && err == nil {
		err = lerr
	}
	return err
}

func notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Printf("systemd: notify %q: %v", state, err)
	}
}

func watchdog(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notify(daemon.SdNotifyWatchdog)
		}
	}
}

// disabledPublisher stands in when no broker is configured.
type disabledPublisher struct{}

func (disabledPublisher) PublishFan(events.FanChecked) error         { return nil }
func (disabledPublisher) PublishButton(events.ButtonActivated) error { return nil }
func (disabledPublisher) PublishSystem(mqtt.SystemEvent) error       { return nil }
func (disabledPublisher) Close() error                               { return nil }

type loopDeps struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	tracker    *status.Tracker
	collector  *metrics.Collector // may be nil
	heartbeat  time.Duration
	now        func() time.Time
}

// runLoop folds fan checks and button activations into the status tracker
// and MQTT, and sends heartbeats, until a signal arrives or the hardware
// loops stop.
func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal, fanCh <-chan events.FanChecked, buttonCh <-chan events.ButtonActivated, done <-chan error) error {
	activity := logic.NewActivity(d.now())

	refreshMQTT := func() {
		if d.mqttStatus == nil {
			return
		}
		connected := d.mqttStatus.IsConnected()
		d.tracker.SetMQTTConnected(connected)
		if d.collector != nil {
			d.collector.SetMQTTConnected(connected)
		}
	}

	shutdown := func(reason string) {
		refreshMQTT()
		snap := d.tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  d.now(),
			Event:      "SHUTDOWN",
			Reason:     reason,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
		}
		if err := d.publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		} else {
			log.Printf("published shutdown event")
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			shutdown(signalName(s))
			return nil

		case err := <-done:
			log.Printf("hardware loops stopped: %v", err)
			shutdown("ERROR")
			if err == nil {
				err = errors.New("hardware loops stopped")
			}
			return err

		case e := <-fanCh:
			prev := e.On != e.Changed
			activity.RecordFan(prev, e.On)
			d.tracker.UpdateFan(e.At, e.On, e.Reason, e.Temp, e.HasTemp)
			d.tracker.SetCounts(activity.Counts())
			if err := d.publisher.PublishFan(e); err != nil {
				log.Printf("publish error: %v", err)
			}

		case e := <-buttonCh:
			log.Printf("button: %s stage=%d", e.Result.Outcome, e.Result.Stage)
			activity.RecordButton(e.Result)
			d.tracker.UpdateButton(e.At, e.Result)
			d.tracker.SetCounts(activity.Counts())
			if err := d.publisher.PublishButton(e); err != nil {
				log.Printf("publish error: %v", err)
			}

		case <-tick:
			t := d.now()
			refreshMQTT()

			hb := activity.CheckHeartbeat(t, d.heartbeat)
			if hb == nil {
				continue
			}
			log.Printf("heartbeat: uptime=%v fan_on=%d fan_off=%d taps=%d commands=%d",
				hb.Uptime, hb.Counts.FanOn, hb.Counts.FanOff, hb.Counts.Taps, hb.Counts.Commands)

			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			snap := d.tracker.Snapshot()
			hbEvent := mqtt.SystemEvent{
				Timestamp:  hb.Timestamp,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := d.publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
