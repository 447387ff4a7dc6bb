package persistence

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/config"
)

// AMQP holds the broker connection used to forward domain events.
type AMQP struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

// NewAMQP dials the broker. It returns nil without error when AMQP_URL is unset.
func NewAMQP(cfg config.AMQPConfig, logger *zap.Logger) (*AMQP, error) {
	if cfg.URL == "" {
		logger.Info("AMQP_URL not set; event forwarding disabled")
		return nil, nil
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	logger.Info("connected to amqp broker", zap.String("exchange", cfg.Exchange))
	return &AMQP{Conn: conn, Channel: ch}, nil
}

// Close closes the channel and the connection.
func (a *AMQP) Close() {
	if a == nil {
		return
	}
	if a.Channel != nil {
		_ = a.Channel.Close()
	}
	if a.Conn != nil {
		_ = a.Conn.Close()
	}
}
