// Package natsbus, downstream tüketicilere (push gateway, analitik, arama
// indeksleyici) event yayınlamak için NATS bağlantısını yönetir.
//
// Subject şeması:
//
//	<prefix>.notifications.<user_id>
//	<prefix>.messages.<conversation_id>
package natsbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/pkg/logger"
)

// Config, NATS bağlantı ayarları.
type Config struct {
	URL           string
	Token         string
	SubjectPrefix string
}

// Client, NATS bağlantısını saran publisher.
type Client struct {
	conn   *nats.Conn
	prefix string
	log    *logger.Logger
}

// Connect, NATS sunucusuna bağlanır. Bağlantı koparsa sınırsız yeniden dener.
func Connect(cfg Config, log *logger.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("huddle"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("nats async error", zap.Error(err))
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "huddle"
	}
	return &Client{conn: nc, prefix: prefix, log: log}, nil
}

// Subject, prefix'li subject üretir: Subject("notifications", id) → "huddle.notifications.<id>".
func (c *Client) Subject(parts ...string) string {
	s := c.prefix
	for _, p := range parts {
		s += "." + p
	}
	return s
}

// PublishJSON, v'yi JSON olarak subject'e yayınlar.
func (c *Client) PublishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal nats payload: %w", err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// IsConnected, bağlantı durumunu döner.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close, bekleyen mesajları flush edip bağlantıyı kapatır.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.log.Warn("nats drain failed", zap.Error(err))
		c.conn.Close()
	}
}
