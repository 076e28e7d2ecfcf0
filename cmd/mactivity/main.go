// Command mactivity reconstructs a macOS activity timeline from power
// management logs and serves it over HTTP, WebSocket, MQTT, a terminal
// dashboard, and plain-text reports.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jholub/mactivity/internal/config"
	"github.com/jholub/mactivity/internal/mqtt"
	"github.com/jholub/mactivity/internal/power"
	"github.com/jholub/mactivity/internal/stats"
	"github.com/jholub/mactivity/internal/status"
	"github.com/jholub/mactivity/internal/timeline"
	"github.com/jholub/mactivity/internal/tui"
	"github.com/jholub/mactivity/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Config file path")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config; "off" disables)`)
	broker := flag.String("broker", "", `MQTT broker address (overrides config; "off" disables)`)
	refresh := flag.Duration("refresh", 0, "Refresh interval (overrides config)")
	rate := flag.Float64("rate", -1, "Hourly rate for billing (overrides config)")
	report := flag.Bool("report", false, "Print the activity report and exit")
	wakes := flag.Bool("wakes", false, "Include wake reasons and app assertions in the report")
	dashboard := flag.Bool("dashboard", false, "Run the terminal dashboard")
	printState := flag.Bool("print-state", false, "Print current state and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(&cfg, *httpAddr, *broker, *refresh, *rate)

	if err := run(cfg, *report, *wakes, *dashboard, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyOverrides lets flags win over the config file. "off" clears an
// address entirely.
func applyOverrides(cfg *config.File, httpAddr, broker string, refresh time.Duration, rate float64) {
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTPAddr = ""
	default:
		cfg.HTTPAddr = httpAddr
	}
	switch broker {
	case "":
	case "off":
		cfg.MQTTBroker = ""
	default:
		cfg.MQTTBroker = broker
	}
	if refresh > 0 {
		cfg.RefreshSecs = int(refresh / time.Second)
	}
	if rate >= 0 {
		cfg.HourlyRate = rate
	}
}

// buildSources assembles the collectors the config enables.
func buildSources(cfg config.File) *power.Composite {
	runner := power.NewExecRunner()
	c := &power.Composite{}
	for _, name := range cfg.Sources {
		switch name {
		case "pmset":
			c.Sources = append(c.Sources, power.NewPmsetSource(runner, time.Local))
		case "last":
			c.Sources = append(c.Sources, power.NewLastSource(runner, time.Local))
		case "log":
			c.Sources = append(c.Sources, power.NewUnifiedLogSource(runner, time.Local))
		case "ioreg":
			c.Sources = append(c.Sources, power.NewIdleSource(runner))
		case "boottime":
			c.Sources = append(c.Sources, power.BootTimeSource{})
		}
	}
	return c
}

// refreshResult bundles everything one sweep produces.
type refreshResult struct {
	states []timeline.State
	events []timeline.Event
	daily  map[stats.Date]stats.Daily
	sum    stats.Summary
	failed map[string]error
}

// refreshOnce runs one full sweep: collect, admit, reconstruct, aggregate.
// now is captured once by the caller so the whole sweep shares a single
// reference instant.
func refreshOnce(ctx context.Context, collector *power.Composite, cfg config.File, now time.Time) (refreshResult, error) {
	tcfg := cfg.Timeline()
	since := now.AddDate(0, 0, -tcfg.RetentionDays)

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	raw, failed := collector.Collect(ctx, since, now)
	events := timeline.Admit(raw, tcfg, now)
	states, err := timeline.Reconstruct(events, tcfg, now)
	if err != nil {
		return refreshResult{}, fmt.Errorf("reconstruct: %w", err)
	}
	daily, sum := stats.Aggregate(states, events, cfg.HourlyRate)

	return refreshResult{states: states, events: events, daily: daily, sum: sum, failed: failed}, nil
}

func run(cfg config.File, report, wakes, dashboard, printState bool) error {
	collector := buildSources(cfg)

	// One-shot modes reconstruct once and print.
	if printState || report {
		now := time.Now()
		res, err := refreshOnce(context.Background(), collector, cfg, now)
		if err != nil {
			return err
		}
		if printState {
			current := timeline.StateUnknown
			if len(res.states) > 0 {
				current = res.states[len(res.states)-1].Type
			}
			fmt.Println(current)
			return nil
		}
		tui.WriteReport(os.Stdout, res.daily, res.sum)
		if wakes {
			tui.WriteWakeReasons(os.Stdout, stats.WakeReasons(res.events), stats.AppAssertions(res.events))
		}
		return nil
	}

	if dashboard {
		tracker := status.NewTracker(time.Now(), statusConfig(cfg))
		return tui.RunDashboard(func() (status.Snapshot, error) {
			now := time.Now()
			res, err := refreshOnce(context.Background(), collector, cfg, now)
			if err != nil {
				return status.Snapshot{}, err
			}
			tracker.Update(res.states, res.daily, res.sum, len(res.events), res.failed, now)
			return tracker.Snapshot(), nil
		}, cfg.Refresh())
	}

	return runDaemon(cfg, collector)
}

func statusConfig(cfg config.File) status.Config {
	return status.Config{
		RefreshSecs: cfg.RefreshSecs,
		Broker:      cfg.MQTTBroker,
		HTTPAddr:    cfg.HTTPAddr,
		HourlyRate:  cfg.HourlyRate,
		Sources:     cfg.Sources,
	}
}

func runDaemon(cfg config.File, collector *power.Composite) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTTBroker != "" {
		real, err := mqtt.NewRealPublisher(cfg.MQTTBroker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer real.Close()
		publisher = real
		mqttStatus = real
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	hub := web.NewHub()
	go hub.Run(ctx)
	metrics := web.NewMetrics()

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, hub, metrics)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: refresh=%ds broker=%s sources=%v", cfg.RefreshSecs, cfg.MQTTBroker, cfg.Sources)

	ticker := time.NewTicker(cfg.Refresh())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	refresh := func(now time.Time) (refreshResult, error) {
		return refreshOnce(ctx, collector, cfg, now)
	}
	return runLoop(refresh, publisher, mqttStatus, tracker, hub, metrics, time.Now, ticker.C, sigCh)
}

// refreshFunc is the sweep entry point runLoop drives; tests inject fakes.
type refreshFunc func(now time.Time) (refreshResult, error)

// heartbeatEverySweeps spaces HEARTBEAT system events: every 30th tick, which
// is 15 minutes at the default 30s refresh interval.
const heartbeatEverySweeps = 30

func runLoop(refresh refreshFunc, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, hub *web.Hub, metrics *web.Metrics, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	// Sweep immediately so the first data does not wait a full interval.
	prev := sweep(refresh, publisher, mqttStatus, tracker, hub, metrics, now(), timeline.StateUnknown)
	sweeps := 0

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if publisher != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  now(),
					Event:      "SHUTDOWN",
					Reason:     signalName,
					Retained:   true,
					RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case <-tick:
			prev = sweep(refresh, publisher, mqttStatus, tracker, hub, metrics, now(), prev)
			sweeps++
			if publisher != nil && sweeps%heartbeatEverySweeps == 0 {
				snap := tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  now(),
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish heartbeat: %v", err)
				}
			}
		}
	}
}

// sweep runs one refresh and fans the result out to the tracker, the
// WebSocket hub, Prometheus, and MQTT. It returns the current state so the
// caller can detect the next transition. A failing sweep keeps the previous
// state and never aborts the loop.
func sweep(refresh refreshFunc, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, hub *web.Hub, metrics *web.Metrics, t time.Time, prev timeline.StateType) timeline.StateType {
	started := time.Now()

	res, err := refresh(t)
	if err != nil {
		log.Printf("refresh error: %v", err)
		return prev
	}
	tracker.Update(res.states, res.daily, res.sum, len(res.events), res.failed, t)
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	snap := tracker.Snapshot()
	if metrics != nil {
		metrics.ObserveRefresh(snap, time.Since(started))
		if hub != nil {
			metrics.SetWSClients(hub.ClientCount())
		}
	}
	if hub != nil {
		hub.Broadcast(json.RawMessage(status.FormatJSON(snap)))
	}

	current := snap.CurrentState
	if current != timeline.StateUnknown && current != prev {
		since := t
		if len(res.states) > 0 {
			since = res.states[len(res.states)-1].Start
		}
		tr := mqtt.Transition{Timestamp: t, State: current, Since: since}
		if prev != timeline.StateUnknown {
			tr.Previous = prev
		}
		log.Printf("state: %s -> %s", prev, current)
		if publisher != nil {
			if err := publisher.PublishTransition(tr); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}
		}
		return current
	}
	if current == timeline.StateUnknown {
		return prev
	}
	return current
}
