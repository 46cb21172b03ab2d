package eventbus

import (
	"context"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

type kafkaPublisher struct {
	log      *logger.Logger
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(log *logger.Logger, cfg KafkaConfig) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("missing KAFKA_BROKERS")
	}

	producer, err := sarama.NewSyncProducer(brokers, newSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return newKafkaPublisher(log, producer, cfg.Topic), nil
}

func newSaramaConfig(cfg KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_1_0
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Return.Successes = true
	if id := strings.TrimSpace(cfg.ClientID); id != "" {
		sc.ClientID = id
	} else {
		sc.ClientID = "mediavault"
	}
	return sc
}

func newKafkaPublisher(log *logger.Logger, producer sarama.SyncProducer, topic string) Publisher {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &kafkaPublisher{
		log:      log.With("service", "KafkaEventPublisher"),
		producer: producer,
		topic:    topic,
	}
}

// Publish keys messages by asset id so one asset's events stay ordered within
// a partition.
func (p *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := evt.Encode()
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.AssetID.String()),
		Value: sarama.ByteEncoder(raw),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(evt.Type)},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka send %s: %w", evt.Type, err)
	}
	p.log.Debug("Event published", "type", evt.Type, "asset_id", evt.AssetID, "partition", partition, "offset", offset)
	return nil
}

func (p *kafkaPublisher) Close() error { return p.producer.Close() }
