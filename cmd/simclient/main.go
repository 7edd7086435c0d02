// Command simclient drives a scripted interview against a running sink:
// it starts a session, maps speakers, replays a short conversation in both
// wire generations, ends the session, and prints the stored analysis.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type utterance struct {
	speakerID string
	text      string
	legacy    bool
}

var script = []utterance{
	{speakerID: "speaker_0", text: "Welcome Jane, tell me about your Go experience."},
	{speakerID: "speaker_1", text: "I have five years of Go experience building backend services and event pipelines."},
	{speakerID: "speaker_0", text: "How do you approach testing concurrent code?"},
	{speakerID: "speaker_1", text: "I rely on table tests, the race detector, and deterministic fakes for collaborators."},
	// One legacy-format event to exercise the v1 path end to end.
	{text: "Thanks, that covers everything I wanted to ask.", legacy: true},
}

func main() {
	base := flag.String("addr", "http://localhost:8765", "sink base URL")
	pace := flag.Duration("pace", 300*time.Millisecond, "delay between utterances")
	flag.Parse()

	post(*base+"/session/start", map[string]string{
		"candidate_name": "Jane Doe",
		"meeting_url":    "https://meet.example.com/demo",
	})
	post(*base+"/session/map-speaker", map[string]string{"speaker_id": "speaker_0", "role": "interviewer"})
	post(*base+"/session/map-speaker", map[string]string{"speaker_id": "speaker_1", "role": "candidate"})

	for _, u := range script {
		var payload any
		if u.legacy {
			payload = map[string]string{
				"Kind":  "recognized",
				"Text":  u.text,
				"TsUtc": time.Now().UTC().Format(time.RFC3339Nano),
			}
		} else {
			payload = map[string]string{
				"event_type":    "final",
				"text":          u.text,
				"speaker_id":    u.speakerID,
				"timestamp_utc": time.Now().UTC().Format(time.RFC3339Nano),
			}
		}
		post(*base+"/transcript", payload)
		time.Sleep(*pace)
	}

	// Give the analysis worker a moment to drain the queue.
	time.Sleep(2 * time.Second)

	ended := post(*base+"/session/end", nil)
	sessionID, _ := ended["session_id"].(string)

	doc := get(*base + "/analyses/" + sessionID)
	pretty, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(pretty))
}

func post(url string, payload any) map[string]any {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		log.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req)
}

func get(url string) map[string]any {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		log.Fatalf("create request: %v", err)
	}
	return do(req)
}

func do(req *http.Request) map[string]any {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		log.Fatalf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, raw)
	}
	log.Printf("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)

	var parsed map[string]any
	_ = json.Unmarshal(raw, &parsed)
	return parsed
}
