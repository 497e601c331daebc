package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// appRunner is the surface main dispatches to, so the flag handling can be
// tested without running a real App.
type appRunner interface {
	ApplyOptions(opts AppOptions)
	RunSolve()
	RunService()
}

func run(args []string, out io.Writer, app appRunner) error {
	fs := flag.NewFlagSet("beaconmesh", flag.ContinueOnError)
	fs.SetOutput(out)

	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	inputFile := fs.String("input", "", "Solve a sensor readings text export and exit")
	outputFile := fs.String("output", "", "Output file for --input mode (.png, .svg or .geojson)")
	renderFormat := fs.String("format", "", "Output format for --input mode: raster, vector or geojson")
	reference := fs.Int("reference", -1, "Override anchor sensor id (default: from config or lowest id)")
	threshold := fs.Int("threshold", 0, "Override overlap threshold (default: from config or 12)")
	mqttMode := fs.Bool("mqtt", false, "Run MQTT service mode for live sensor readings")
	httpMode := fs.Bool("http", false, "Enable HTTP server for map and status endpoints")
	httpPort := fs.Int("http-port", 8080, "HTTP server port")

	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Fprintf(out, "beaconmesh version: %s\n", Version)

	app.ApplyOptions(AppOptions{
		ConfigFile:   *configFile,
		InputFile:    *inputFile,
		OutputFile:   *outputFile,
		RenderFormat: *renderFormat,
		Reference:    *reference,
		Threshold:    *threshold,
		HTTPPort:     *httpPort,
		MqttMode:     *mqttMode,
		HTTPMode:     *httpMode,
	})

	if *inputFile != "" {
		app.RunSolve()
		return nil
	}

	if *mqttMode || *httpMode {
		app.RunService()
		return nil
	}

	fmt.Fprintln(out, "beaconmesh service starting...")
	fmt.Fprintln(out, "Use --input=readings.txt to solve a text export")
	fmt.Fprintln(out, "Use --mqtt to run MQTT service mode")
	fmt.Fprintln(out, "Use --http to run HTTP server mode")
	fmt.Fprintln(out, "Use --mqtt --http to run both together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - MQTT settings, sensor topics, threshold and anchor")
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}
