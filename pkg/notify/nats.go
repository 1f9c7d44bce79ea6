package notify

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"livechat/pkg/logger"
)

// NATSPublisher publishes notification events onto per-channel subjects
// (e.g. notify.email, notify.sms) for the external paging provider to
// consume.
type NATSPublisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subjectPrefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("livechat-notify"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats_reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	if subjectPrefix == "" {
		subjectPrefix = "notify"
	}
	logger.Info("nats_connected", "url", url, "subject_prefix", subjectPrefix)
	return &NATSPublisher{nc: nc, subjectPrefix: subjectPrefix}, nil
}

func (p *NATSPublisher) Publish(channel string, payload []byte) error {
	return p.nc.Publish(p.subjectPrefix+"."+channel, payload)
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
