package eventbus

import (
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	uuid "github.com/satori/go.uuid"
)

// KafkaConfig configures the optional Kafka-backed Sink, grounded on
// datasync/chaindatafetcher/kafka/config.go's KafkaConfig (brokers,
// partitions, replication factor).
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	Partitions  int32
	Replicas    int16
}

// KafkaSink publishes events as Sarama async-producer messages, grounded on
// datasync/chaindatafetcher/event/kafka/kafka.go's KafkaBroker.Publish/
// newProducer, trimmed to the producer side only — this node never
// consumes its own event stream back.
type KafkaSink struct {
	producer sarama.AsyncProducer
	admin    sarama.ClusterAdmin
	prefix   string
	replicas int16
}

// NewKafkaSink dials brokers and returns a ready Sink. Topics are created
// lazily on first publish, matching KafkaBroker.CreateTopic's behavior.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	producerCfg := sarama.NewConfig()
	producerCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producerCfg.Producer.Return.Successes = false
	producerCfg.Producer.Compression = sarama.CompressionSnappy
	producerCfg.Producer.Flush.Frequency = 500 * time.Millisecond
	producerCfg.Version = sarama.MaxVersion
	producerCfg.ClientID = "solidusnode-" + uuid.NewV4().String()

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, producerCfg)
	if err != nil {
		return nil, fmt.Errorf("eventbus: start sarama producer: %w", err)
	}

	adminCfg := sarama.NewConfig()
	adminCfg.Version = sarama.MaxVersion
	admin, err := sarama.NewClusterAdmin(cfg.Brokers, adminCfg)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("eventbus: start sarama cluster admin: %w", err)
	}

	replicas := cfg.Replicas
	if replicas == 0 {
		replicas = 1
	}

	go func() {
		for err := range producer.Errors() {
			elog.Warn("kafka producer delivery failed", "err", err)
		}
	}()

	return &KafkaSink{producer: producer, admin: admin, prefix: cfg.TopicPrefix, replicas: replicas}, nil
}

// Publish marshals event as JSON and enqueues it on the producer's input
// channel, keyed by event.Key() when it implements Key.
func (k *KafkaSink) Publish(topic string, event interface{}) error {
	fullTopic := topic
	if k.prefix != "" {
		fullTopic = k.prefix + "-" + topic
	}
	k.ensureTopic(fullTopic)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: fullTopic,
		Key:   sarama.StringEncoder(fullTopic),
		Value: sarama.ByteEncoder(data),
	}
	if keyed, ok := event.(Key); ok {
		if k := keyed.Key(); k != "" {
			msg.Key = sarama.StringEncoder(k)
		}
	}

	k.producer.Input() <- msg
	return nil
}

func (k *KafkaSink) ensureTopic(topic string) {
	_ = k.admin.CreateTopic(topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: k.replicas,
	}, false)
}

// Close shuts down the producer and admin client.
func (k *KafkaSink) Close() error {
	adminErr := k.admin.Close()
	producerErr := k.producer.Close()
	if producerErr != nil {
		return producerErr
	}
	return adminErr
}
