package control

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/encodeous/routingd/decision"
)

// FeedMessage is one line of the newline-delimited-JSON publication
// feed the `run` command reads: each line carries either a Publication
// or a StaticRoute update, never both.
type FeedMessage struct {
	Publication *decision.Publication       `json:"publication,omitempty"`
	StaticRoute *decision.StaticRouteUpdate `json:"staticRoute,omitempty"`
}

// ReadFeed parses r as newline-delimited FeedMessage JSON, returning
// the two channels Decision.Start expects. Both channels close when r
// is exhausted or a read error occurs; malformed lines are logged and
// skipped, matching spec.md §7's "malformed input" taxonomy.
func ReadFeed(r io.Reader, log *slog.Logger) (<-chan decision.Publication, <-chan decision.StaticRouteUpdate) {
	pubCh := make(chan decision.Publication, 16)
	staticCh := make(chan decision.StaticRouteUpdate, 16)

	go func() {
		defer close(pubCh)
		defer close(staticCh)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var msg FeedMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				log.Warn("control: malformed feed line", "error", err)
				continue
			}
			if msg.Publication != nil {
				pubCh <- *msg.Publication
			}
			if msg.StaticRoute != nil {
				staticCh <- *msg.StaticRoute
			}
		}
	}()

	return pubCh, staticCh
}
