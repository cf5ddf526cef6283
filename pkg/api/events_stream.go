package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fleetlab/corectl/pkg/metrics"
)

// streamEvents implements GET /events/stream (spec §6): a long-lived
// text/event-stream connection relaying the envelopes the broker
// publishes, in publish order, until the client disconnects. A client
// that falls behind its bounded queue loses the oldest envelopes.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	go func() {
		<-r.Context().Done()
		s.broker.Unsubscribe(sub)
	}()

	for {
		env, ok := sub.Next()
		if !ok {
			return
		}
		if sub.Lagged() {
			metrics.SubscriberLagTotal.Inc()
		}

		payload, err := json.Marshal(env)
		if err != nil {
			s.logger.Warn().Err(err).Str("type", string(env.Type)).Msg("failed to marshal event envelope")
			continue
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Type, payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
