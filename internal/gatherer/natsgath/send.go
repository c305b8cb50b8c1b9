package natsgath

import (
	"encoding/json"

	"github.com/lmittmann/tint"
)

func (s *NatsGatherer) send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal message", tint.Err(err))
		return
	}

	if err := s.pub.Publish(s.subject, b); err != nil {
		s.logger.Error("failed to publish message to NATS", "subject", s.subject, tint.Err(err))
	}
}

// flush pushes buffered messages out before the process may exit.
func (s *NatsGatherer) flush() {
	if err := s.pub.Flush(); err != nil {
		s.logger.Error("failed to flush NATS connection", tint.Err(err))
	}
}
