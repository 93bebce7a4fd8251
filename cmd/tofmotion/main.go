package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tofmotion/internal/api"
	"github.com/banshee-data/tofmotion/internal/config"
	"github.com/banshee-data/tofmotion/internal/ingest"
	"github.com/banshee-data/tofmotion/internal/monitoring"
	"github.com/banshee-data/tofmotion/internal/publish"
	"github.com/banshee-data/tofmotion/internal/serialmux"
	"github.com/banshee-data/tofmotion/internal/tof"
	"github.com/banshee-data/tofmotion/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "HTTP listen address")
	port          = flag.String("port", "/dev/ttyACM0", "Serial port of the ToF sensor board")
	baud          = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	configPath    = flag.String("config", "", "Path to a tuning JSON file (defaults built in)")
	devFixtures   = flag.String("dev", "", "Replay frame lines from this fixture file instead of a serial port")
	devInterval   = flag.Duration("dev-interval", 30*time.Millisecond, "Delay between replayed fixture lines")
	disableSerial = flag.Bool("disable-serial", false, "Run the HTTP API without a sensor")
	noInit        = flag.Bool("no-init", false, "Do not send the enable and measure commands on startup")
	mqttBroker    = flag.String("mqtt-broker", "", "MQTT broker for direction events, e.g. tcp://localhost:1883")
	mqttTopic     = flag.String("mqtt-topic", publish.DefaultMQTTTopic, "MQTT topic for direction events")
	mqttClientID  = flag.String("mqtt-client-id", publish.DefaultMQTTClientID, "MQTT client ID")
	verbose       = flag.Bool("verbose", false, "Log per-tick classification detail")
	versionFlag   = flag.Bool("version", false, "Print version and exit")
)

// loadFixtures reads non-empty lines from a dev replay file.
func loadFixtures(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures file: %w", err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("fixtures file %s has no lines", path)
	}
	return lines, nil
}

func openSerial() (serialmux.SerialMuxInterface, error) {
	switch {
	case *disableSerial:
		log.Print("serial disabled; serving API only")
		return serialmux.NewDisabledSerialMux(), nil
	case *devFixtures != "":
		lines, err := loadFixtures(*devFixtures)
		if err != nil {
			return nil, err
		}
		log.Printf("dev mode: replaying %d lines from %s", len(lines), *devFixtures)
		return serialmux.NewMockSerialMux(lines, *devInterval), nil
	default:
		return serialmux.NewRealSerialMux(*port, serialmux.PortOptions{BaudRate: *baud})
	}
}

func buildPublisher(state *api.State) (publish.Publisher, error) {
	sinks := publish.Multi{state, publish.NewLogPublisher(nil)}
	if *mqttBroker == "" {
		return sinks, nil
	}
	mp, err := publish.NewMQTTPublisher(publish.MQTTOptions{
		Broker:   *mqttBroker,
		ClientID: *mqttClientID,
		Topic:    *mqttTopic,
	})
	if err != nil {
		return nil, err
	}
	return append(sinks, mp), nil
}

// Main
func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	monitoring.SetVerbose(*verbose)
	log.Print(version.String())

	tuning := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	sensor, err := openSerial()
	if err != nil {
		log.Fatalf("failed to create sensor port: %v", err)
	}
	defer sensor.Close()

	if !*noInit {
		if err := sensor.Initialise(); err != nil {
			log.Fatalf("failed to initialise device: %v", err)
		}
		log.Printf("initialised device on %s", *port)
	}

	state := api.NewState()
	publisher, err := buildPublisher(state)
	if err != nil {
		log.Fatalf("failed to set up direction publisher: %v", err)
	}
	defer publisher.Close()

	runner := ingest.NewRunner(ingest.Config{
		Mux:          sensor,
		Pipeline:     tof.NewPipeline(tuning.PipelineConfig()),
		Publisher:    publisher,
		Sink:         state,
		TickInterval: tuning.GetTickInterval(),
		RunID:        uuid.New(),
	})

	// Create a wait group for the HTTP server, serial monitor, and ingest routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sensor.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		ms := sensor.Stats()
		log.Printf("monitor routine terminated: lines=%d frames=%d device_errors=%d unknown=%d dropped=%d",
			ms.Lines, ms.Frames, ms.DeviceErrors, ms.Unknown, ms.Dropped)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("ingest stopped: %v", err)
		}
		stats := runner.Stats()
		log.Printf("ingest routine terminated: ticks=%d accepted=%d rejected=%d emitted=%d",
			stats.Ticks, stats.Accepted, stats.Rejected, stats.Emitted)
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(state, tuning).ServeMux()
		sensor.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// end open event streams so Shutdown does not wait on them
		state.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
