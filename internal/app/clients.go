package app

import (
	"fmt"

	"github.com/yungbote/mediavault-backend/internal/platform/eventbus"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

var (
	newRedisPublisher = eventbus.NewRedisPublisher
	newKafkaPublisher = eventbus.NewKafkaPublisher
)

// wireEventPublisher returns the lifecycle event sink for cfg.EventsMode.
func wireEventPublisher(log *logger.Logger, cfg Config) (eventbus.Publisher, error) {
	switch cfg.EventsMode {
	case EventsRedis:
		pub, err := newRedisPublisher(log, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis event publisher: %w", err)
		}
		log.Info("Asset events published to redis", "channel", cfg.Redis.Channel)
		return pub, nil
	case EventsKafka:
		pub, err := newKafkaPublisher(log, cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("init kafka event publisher: %w", err)
		}
		log.Info("Asset events published to kafka", "topic", cfg.Kafka.Topic)
		return pub, nil
	default:
		return eventbus.NewNop(), nil
	}
}
