package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/fatih/color"
)

// Synthetic observation feeder. Starts a session, streams plausible
// gaze/pose/stress readings over HTTP for the requested duration, then
// ends the session and prints the dashboard summary.

type startSessionResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type submitResponse struct {
	Data struct {
		Accepted bool   `json:"accepted"`
		Reason   string `json:"reason"`
	} `json:"data"`
}

var baseURL string

func main() {
	var duration time.Duration
	var distracted bool
	flag.StringVar(&baseURL, "base-url", "http://localhost:8000/api", "API base URL")
	flag.DurationVar(&duration, "duration", 20*time.Second, "how long to stream observations")
	flag.BoolVar(&distracted, "distracted", false, "simulate a wandering, stressed user")
	flag.Parse()

	color.Cyan("=== Observation Feeder ===")

	sessionID, err := startSession()
	if err != nil {
		color.Red("Failed to start session: %v", err)
		return
	}
	color.Green("Session started: %s", sessionID)

	deadline := time.Now().Add(duration)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	tick := 0
	for now := range ticker.C {
		if now.After(deadline) {
			break
		}
		tick++

		feed(sessionID, "gaze", gazeSample(distracted), confidence(distracted))
		if tick%2 == 0 {
			feed(sessionID, "pose", poseSample(distracted), confidence(distracted))
		}
		if tick%10 == 0 {
			feed(sessionID, "stress", stressSample(distracted), 0.9)
			color.Yellow("  %d observations sent", tick*2)
		}
	}

	summary, err := fetchSummary(sessionID)
	if err != nil {
		color.Red("Failed to fetch summary: %v", err)
	} else {
		color.Cyan("\nSession summary:")
		fmt.Println(summary)
	}

	if err := endSession(sessionID); err != nil {
		color.Red("Failed to end session: %v", err)
		return
	}
	color.Green("Session ended: %s", sessionID)
}

// gazeSample places the gaze near the screen centre, or wandering toward
// the edges when distracted.
func gazeSample(distracted bool) []float64 {
	if distracted {
		return []float64{rand.Float64(), rand.Float64()}
	}
	return []float64{
		0.5 + (rand.Float64()-0.5)*0.1,
		0.5 + (rand.Float64()-0.5)*0.1,
	}
}

func poseSample(distracted bool) []float64 {
	spread := 5.0
	if distracted {
		spread = 40.0
	}
	return []float64{
		(rand.Float64() - 0.5) * spread,     // pitch
		(rand.Float64() - 0.5) * spread,     // yaw
		(rand.Float64() - 0.5) * spread / 2, // roll
	}
}

func stressSample(distracted bool) []float64 {
	if distracted {
		return []float64{0.6 + rand.Float64()*0.3}
	}
	return []float64{0.1 + rand.Float64()*0.2}
}

func confidence(distracted bool) float64 {
	if distracted {
		return 0.4 + rand.Float64()*0.4
	}
	return 0.8 + rand.Float64()*0.2
}

func startSession() (string, error) {
	body := map[string]string{
		"device_info": "feeder/1.0 (synthetic)",
		"os_version":  "linux",
	}
	data, err := post("/session/v1", body)
	if err != nil {
		return "", err
	}

	var resp startSessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("no session id in response: %s", string(data))
	}
	return resp.Data.ID, nil
}

func feed(sessionID, family string, payload []float64, conf float64) {
	body := map[string]interface{}{
		"family":      family,
		"payload":     payload,
		"confidence":  conf,
		"captured_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := post("/session/v1/"+sessionID+"/observations", body)
	if err != nil {
		color.Red("  submit %s failed: %v", family, err)
		return
	}

	var resp submitResponse
	if err := json.Unmarshal(data, &resp); err == nil && !resp.Data.Accepted {
		color.Yellow("  %s rejected: %s", family, resp.Data.Reason)
	}
}

func fetchSummary(sessionID string) (string, error) {
	resp, err := http.Get(baseURL + "/dashboard/v1/sessions/" + sessionID + "/summary")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw), nil
	}
	return pretty.String(), nil
}

func endSession(sessionID string) error {
	_, err := post("/session/v1/"+sessionID+"/end", nil)
	return err
}

func post(path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest("POST", baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
