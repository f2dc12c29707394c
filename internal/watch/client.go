package watch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notify fires a best-effort POST to a running hub's /publish endpoint,
// letting a CLI invocation (which never holds the Hub in its own memory —
// the hub lives inside a separate "planloop debug --watch" process) push
// an event in for rebroadcast. Failures (most commonly: no hub listening)
// are logged, never returned, since watch is opt-in non-core
// infrastructure per SPEC_FULL.md §D and must never fail the calling
// command.
func Notify(host string, port int, eventType EventType, payload interface{}) {
	body, err := json.Marshal(struct {
		Type    EventType   `json:"type"`
		Payload interface{} `json:"payload"`
	}{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("watch: marshal notify payload: %v", err)
		return
	}

	url := fmt.Sprintf("http://%s:%d/publish", host, port)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("watch: notify %s: %v", url, err)
		return
	}
	defer resp.Body.Close()
}
