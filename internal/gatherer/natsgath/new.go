package natsgath

import (
	"log/slog"

	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subj string, data []byte) error
	Flush() error
}

// New creates a gatherer that publishes run events to the given subject.
func New(nc *nats.Conn, runUuid string, subject string) *NatsGatherer {
	return newGatherer(nc, runUuid, subject)
}

func newGatherer(p publisher, runUuid string, subject string) *NatsGatherer {
	return &NatsGatherer{
		pub:     p,
		subject: subject,
		runUuid: runUuid,
		logger:  slog.Default(),
	}
}
