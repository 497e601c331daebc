package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/meshfield/beaconmesh/survey"
)

// newHTTPServer creates an HTTP server with all endpoints.
func newHTTPServer(tracker *survey.Tracker, config *survey.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			HasMap    bool      `json:"hasMap"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			HasMap:    tracker.Solution() != nil,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Solve status and summary
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		sol := tracker.Solution()

		status := struct {
			SensorsConfigured int        `json:"sensorsConfigured"`
			SensorsReported   int        `json:"sensorsReported"`
			Solved            bool       `json:"solved"`
			LandmarkCount     int        `json:"landmarkCount,omitempty"`
			MaxDistance       int64      `json:"maxDistance,omitempty"`
			SolvedAt          *time.Time `json:"solvedAt,omitempty"`
			LastError         string     `json:"lastError,omitempty"`
		}{
			SensorsConfigured: len(config.Sensors),
			SensorsReported:   tracker.SensorCount(),
			Solved:            sol != nil,
		}
		if sol != nil {
			status.LandmarkCount = sol.LandmarkCount
			status.MaxDistance = sol.MaxDistance
			status.SolvedAt = &sol.SolvedAt
		}
		if err := tracker.LastError(); err != nil {
			status.LastError = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding status: %v", err)
		}
	})

	// Reported sensors and their recovered poses
	mux.HandleFunc("/api/sensors", func(w http.ResponseWriter, r *http.Request) {
		type sensorStatus struct {
			ID       int          `json:"id"`
			Topic    string       `json:"topic,omitempty"`
			Reported bool         `json:"reported"`
			Placed   bool         `json:"placed"`
			Pose     *survey.Pose `json:"pose,omitempty"`
		}

		sol := tracker.Solution()
		sensors := make([]sensorStatus, 0, len(config.Sensors))
		for _, sc := range config.Sensors {
			ss := sensorStatus{
				ID:       sc.ID,
				Topic:    sc.Topic,
				Reported: tracker.HasReading(sc.ID),
			}
			if sol != nil {
				if pose, ok := sol.Poses[sc.ID]; ok {
					p := pose
					ss.Placed = true
					ss.Pose = &p
				}
			}
			sensors = append(sensors, ss)
		}
		sort.Slice(sensors, func(i, j int) bool { return sensors[i].ID < sensors[j].ID })

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(sensors); err != nil {
			log.Printf("Error encoding sensors: %v", err)
		}
	})

	// Solved map as GeoJSON
	mux.HandleFunc("/api/map", func(w http.ResponseWriter, r *http.Request) {
		sol := tracker.Solution()
		if sol == nil {
			http.Error(w, "No solved map available", http.StatusServiceUnavailable)
			return
		}

		data, err := survey.SolutionGeoJSON(sol)
		if err != nil {
			log.Printf("Error building GeoJSON: %v", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing GeoJSON: %v", err)
		}
	})

	// Solved map as raster PNG
	mux.HandleFunc("/map.png", func(w http.ResponseWriter, r *http.Request) {
		sol := tracker.Solution()
		if sol == nil {
			http.Error(w, "No solved map available", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := survey.NewMapRenderer(sol).RenderPNG(w); err != nil {
			log.Printf("Error encoding map PNG: %v", err)
		}
	})

	// Solved map as vector SVG
	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		sol := tracker.Solution()
		if sol == nil {
			http.Error(w, "No solved map available", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := survey.NewVectorRenderer(sol).RenderToSVG(w); err != nil {
			log.Printf("Error encoding map SVG: %v", err)
		}
	})

	// Default route serves an HTML page embedding the SVG map
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>beaconmesh</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
html,body{width:100%;height:100%;overflow:hidden;background:#1a1a1a}
img{display:block;width:100vw;height:100vh;object-fit:contain}
</style>
</head>
<body>
<img src="/map.svg" alt="Landmark Map">
</body>
</html>`))
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}
