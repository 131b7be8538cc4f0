package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/kwv/planebox/scene"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *scene.StateTracker, runID string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		stats := stateTracker.Stats()
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			RunID     string    `json:"runId"`
			HasFrame  bool      `json:"hasFrame"`
			Frames    uint64    `json:"frames"`
			Scenes    uint64    `json:"scenes"`
			Points    int       `json:"points"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			RunID:     runID,
			HasFrame:  stateTracker.HasFrame(),
			Frames:    stats.Frames,
			Scenes:    stats.Scenes,
			Points:    stats.Points,
		}
		writeJSON(w, "application/json", status)
	})

	mux.HandleFunc("/frame.json", func(w http.ResponseWriter, r *http.Request) {
		frame, ok := stateTracker.LatestFrame()
		if !ok {
			http.Error(w, "No frame available", http.StatusServiceUnavailable)
			return
		}
		payload, err := scene.EncodeFrame(frame, scene.EncodingJSON, runID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(payload); err != nil {
			log.Printf("[HTTP] Error writing frame: %v", err)
		}
	})

	mux.HandleFunc("/frame.pcd", func(w http.ResponseWriter, r *http.Request) {
		frame, ok := stateTracker.LatestFrame()
		if !ok {
			http.Error(w, "No frame available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="frame.pcd"`)
		if err := scene.WritePCD(w, frame); err != nil {
			log.Printf("[HTTP] Error writing PCD: %v", err)
		}
	})

	mux.HandleFunc("/scene.json", func(w http.ResponseWriter, r *http.Request) {
		s, ok := stateTracker.LatestScene()
		if !ok {
			http.Error(w, "No scene available", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, "application/json", s.Summarize(runID))
	})

	mux.HandleFunc("/footprint.geojson", func(w http.ResponseWriter, r *http.Request) {
		s, ok := stateTracker.LatestScene()
		if !ok {
			http.Error(w, "No scene available", http.StatusServiceUnavailable)
			return
		}
		payload, err := scene.SceneFeatureCollection(s, runID).MarshalJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(payload); err != nil {
			log.Printf("[HTTP] Error writing GeoJSON: %v", err)
		}
	})

	// ?style=vector rasterizes the canvas rendering instead of the pixel view
	mux.HandleFunc("/preview.png", func(w http.ResponseWriter, r *http.Request) {
		frame, s, ok := latest(stateTracker)
		if !ok {
			http.Error(w, "No frame available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")

		var err error
		if r.URL.Query().Get("style") == "vector" {
			err = scene.NewVectorRenderer().RenderToPNG(w, frame, s)
		} else {
			err = scene.NewTopDownRenderer().WritePNG(w, frame, s)
		}
		if err != nil {
			log.Printf("[HTTP] Error encoding preview PNG: %v", err)
		}
	})

	mux.HandleFunc("/preview.svg", func(w http.ResponseWriter, r *http.Request) {
		frame, s, ok := latest(stateTracker)
		if !ok {
			http.Error(w, "No frame available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := scene.NewVectorRenderer().RenderToSVG(w, frame, s); err != nil {
			log.Printf("[HTTP] Error rendering preview SVG: %v", err)
		}
	})

	return mux
}

// latest returns the newest frame and the scene it was drawn from
func latest(stateTracker *scene.StateTracker) (*scene.PointCloud, *scene.Scene, bool) {
	frame, ok := stateTracker.LatestFrame()
	if !ok {
		return nil, nil, false
	}
	s, _ := stateTracker.LatestScene()
	return frame, s, true
}

func writeJSON(w http.ResponseWriter, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Error encoding JSON: %v", err)
	}
}
