package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/meshfield/beaconmesh/survey"
)

// App encapsulates the application state and dependencies.
type App struct {
	Config     *survey.Config
	Tracker    *survey.Tracker
	MQTTClient *survey.MQTTClient
	Publisher  *survey.Publisher

	// CLI flags (effectively dependencies)
	ConfigFile   string
	InputFile    string
	OutputFile   string
	RenderFormat string
	Reference    int
	Threshold    int
	HTTPPort     int
	MqttMode     bool
	HTTPMode     bool
}

// AppOptions carries parsed CLI options into the App.
type AppOptions struct {
	ConfigFile   string
	InputFile    string
	OutputFile   string
	RenderFormat string
	Reference    int
	Threshold    int
	HTTPPort     int
	MqttMode     bool
	HTTPMode     bool
}

// NewApp creates a new App instance.
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance.
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.InputFile = opts.InputFile
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
	a.Reference = opts.Reference
	a.Threshold = opts.Threshold
	a.HTTPPort = opts.HTTPPort
	a.MqttMode = opts.MqttMode
	a.HTTPMode = opts.HTTPMode
}

// correlatorConfig resolves the effective tunables from config file and CLI
// flags. CLI overrides win.
func (a *App) correlatorConfig() survey.CorrelatorConfig {
	cfg := survey.DefaultCorrelatorConfig()
	if a.Config != nil {
		cfg = a.Config.CorrelatorConfig()
	}
	if a.Threshold > 0 {
		cfg.Threshold = a.Threshold
	}
	if a.Reference >= 0 {
		cfg.Reference = a.Reference
	}
	return cfg
}

// RunSolve parses a readings text export, correlates it and prints the
// solution. With --output it also writes a rendered map or GeoJSON document.
func (a *App) RunSolve() {
	// Config file is optional in solve mode; it only contributes defaults.
	if _, err := os.Stat(a.ConfigFile); err == nil {
		config, err := survey.LoadConfig(a.ConfigFile)
		if err != nil {
			log.Printf("Warning: failed to load config file %s: %v", a.ConfigFile, err)
		} else {
			a.Config = config
			log.Printf("Loaded config from %s", a.ConfigFile)
		}
	}

	readings, err := survey.ParseReadingsFile(a.InputFile)
	if err != nil {
		log.Fatalf("Error parsing %s: %v", a.InputFile, err)
	}
	fmt.Printf("Parsed %d sensor reading(s) from %s\n", len(readings), a.InputFile)

	tracker := survey.NewTracker(a.correlatorConfig())
	for _, r := range readings {
		tracker.UpdateReading(r.ID, r.Landmarks)
	}

	sol, err := tracker.Solve()
	if err != nil {
		log.Fatalf("Correlation failed: %v", err)
	}

	fmt.Printf("Distinct landmarks: %d\n", sol.LandmarkCount)
	fmt.Printf("Max origin distance: %d\n", sol.MaxDistance)
	fmt.Println("Sensor poses:")
	for _, r := range readings {
		pose := sol.Poses[r.ID]
		fmt.Printf("  sensor %d: origin (%s) orientation %d\n", r.ID, pose.Origin, pose.Orientation)
	}

	if a.OutputFile == "" {
		return
	}
	if err := a.writeSolution(sol); err != nil {
		log.Fatalf("Error writing %s: %v", a.OutputFile, err)
	}
	fmt.Printf("Created: %s\n", a.OutputFile)
}

// writeSolution renders the solution to the output file in the requested
// format, inferring it from the file extension when no --format was given.
func (a *App) writeSolution(sol *survey.Solution) error {
	format := a.RenderFormat
	if format == "" {
		switch strings.ToLower(filepath.Ext(a.OutputFile)) {
		case ".svg":
			format = "vector"
		case ".geojson", ".json":
			format = "geojson"
		default:
			format = "raster"
		}
	}

	switch format {
	case "geojson":
		data, err := survey.SolutionGeoJSON(sol)
		if err != nil {
			return err
		}
		return os.WriteFile(a.OutputFile, data, 0644)

	case "raster":
		out, err := os.Create(a.OutputFile)
		if err != nil {
			return err
		}
		defer closeQuietly(out, a.OutputFile)
		return survey.NewMapRenderer(sol).RenderPNG(out)

	case "vector":
		out, err := os.Create(a.OutputFile)
		if err != nil {
			return err
		}
		defer closeQuietly(out, a.OutputFile)
		renderer := survey.NewVectorRenderer(sol)
		if strings.EqualFold(filepath.Ext(a.OutputFile), ".png") {
			return renderer.RenderToPNG(out)
		}
		return renderer.RenderToSVG(out)

	default:
		return fmt.Errorf("invalid format: %s (must be raster, vector or geojson)", format)
	}
}

func closeQuietly(f *os.File, path string) {
	if err := f.Close(); err != nil {
		log.Printf("Warning: error closing %s: %v", path, err)
	}
}

// RunService starts the combined MQTT and/or HTTP service.
func (a *App) RunService() {
	fmt.Println("Starting beaconmesh service...")

	config, err := survey.LoadConfig(a.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v (looked at %s)", err, a.ConfigFile)
	}
	a.Config = config
	log.Printf("Loaded config from %s", a.ConfigFile)

	a.Tracker = survey.NewTracker(a.correlatorConfig())

	if a.MqttMode {
		mqttClient, err := survey.InitMQTT(config, a.handleReading)
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		if mqttClient == nil {
			log.Fatal("MQTT broker not configured in config.yaml")
		}
		a.MQTTClient = mqttClient

		a.Publisher = survey.NewPublisher(mqttClient.Client())
		if config.MQTT.PublishPrefix != "" {
			a.Publisher.SetPrefix(config.MQTT.PublishPrefix)
		}
		fmt.Println("MQTT map publisher initialized")
	}

	if a.HTTPMode {
		httpServer := newHTTPServer(a.Tracker, config)
		go func() {
			addr := fmt.Sprintf(":%d", a.HTTPPort)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	a.printServiceInfo()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down service...")
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
}

// handleReading ingests one sensor report. Once every configured sensor has
// reported, each report triggers a fresh solve, so re-reports keep the map
// current.
func (a *App) handleReading(id int, landmarks []survey.Landmark, err error) {
	if err != nil {
		log.Printf("Error receiving reading: %v", err)
		return
	}
	if a.Config.GetSensorByID(id) == nil {
		log.Printf("Ignoring reading from unconfigured sensor %d", id)
		return
	}
	if len(landmarks) == 0 {
		log.Printf("Ignoring empty reading from sensor %d", id)
		return
	}

	a.Tracker.UpdateReading(id, landmarks)
	log.Printf("sensor %d: %d landmarks (%d/%d sensors reported)",
		id, len(landmarks), a.Tracker.SensorCount(), len(a.Config.Sensors))

	if a.Tracker.SensorCount() < len(a.Config.Sensors) {
		return
	}

	sol, err := a.Tracker.Solve()
	if err != nil {
		log.Printf("Correlation failed: %v", err)
		return
	}
	log.Printf("Solved: %d landmarks, max origin distance %d", sol.LandmarkCount, sol.MaxDistance)

	if a.Publisher != nil {
		if err := a.Publisher.PublishSolution(sol); err != nil {
			log.Printf("Error publishing solution: %v", err)
		}
	}
}

func (a *App) printServiceInfo() {
	fmt.Println("\nService Running")
	fmt.Println("===============")

	if a.MqttMode {
		fmt.Println("\nMQTT:")
		fmt.Println("  Subscribed topics:")
		for _, sc := range a.Config.Sensors {
			fmt.Printf("    - %s (sensor %d)\n", sc.Topic, sc.ID)
		}
		publishPrefix := a.Config.MQTT.PublishPrefix
		if publishPrefix == "" {
			publishPrefix = "beaconmesh"
		}
		fmt.Printf("  Publishing map to: %s/map\n", publishPrefix)
		fmt.Printf("  Publishing poses to: %s/sensors/{id}/pose\n", publishPrefix)
	}

	if a.HTTPMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", a.HTTPPort)
		fmt.Println("  GET /health       - Health check")
		fmt.Println("  GET /api/status   - Solve status and summary")
		fmt.Println("  GET /api/sensors  - Reported sensors and recovered poses")
		fmt.Println("  GET /api/map      - Solved map as GeoJSON")
		fmt.Println("  GET /map.png      - Solved map as PNG")
		fmt.Println("  GET /map.svg      - Solved map as SVG")
	}

	fmt.Println("\nPress Ctrl+C to stop")
}
