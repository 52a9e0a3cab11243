package sink

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/Shopify/sarama"
	log "github.com/sirupsen/logrus"
)

// KafkaSink ...
type KafkaSink struct {
	// Kafka brokers to send chunks to
	Brokers []string
	// Kafka topic
	Topic string
	// Message key; constant so every chunk lands on the same partition in order
	Key string

	producer sarama.SyncProducer
}

func createTlsConfiguration() (*tls.Config, error) {
	caFile := os.Getenv("SINK_KAFKA_CA_CERT_PATH")
	if caFile == "" {
		return nil, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// NewKafka ...
func NewKafka() (*KafkaSink, error) {
	brokers, err := requireEnv("kafka", "SINK_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	if err != nil {
		return nil, err
	}

	brokerList := strings.Split(brokers, ",")
	log.Debugf("[sink/kafka] Kafka brokers: %s", strings.Join(brokerList, ", "))

	topic, err := requireEnv("kafka", "SINK_KAFKA_TOPIC", "")
	if err != nil {
		return nil, err
	}
	log.Debugf("[sink/kafka] Kafka topic: %s", topic)

	key := os.Getenv("SINK_KAFKA_KEY")
	if key == "" {
		key = "zip-firehose"
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1

	tlsConfig, err := createTlsConfiguration()
	if err != nil {
		return nil, fmt.Errorf("[sink/kafka] %w", err)
	}
	if tlsConfig != nil {
		config.Net.TLS.Config = tlsConfig
		config.Net.TLS.Enable = true
	}

	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		return nil, fmt.Errorf("[sink/kafka] %w", err)
	}

	return &KafkaSink{
		Brokers:  brokerList,
		Topic:    topic,
		Key:      key,
		producer: producer,
	}, nil
}

// Start ...
func (s *KafkaSink) Start() error {
	log.Info("[sink/kafka] Starting writer")
	return nil
}

// Stop ...
func (s *KafkaSink) Stop() error {
	return s.producer.Close()
}

// Abort closes the producer. Chunks already acked stay on the topic; the
// missing end-of-central-directory record makes the archive unreadable.
func (s *KafkaSink) Abort(cause error) error {
	log.Warnf("[sink/kafka] aborting: %s", cause)
	return s.producer.Close()
}

// Put sends one chunk and waits for the broker to ack it.
func (s *KafkaSink) Put(data []byte) error {
	message := &sarama.ProducerMessage{
		Topic: s.Topic,
		Key:   sarama.StringEncoder(s.Key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := s.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("[sink/kafka] Failed to produce message: %w", err)
	}

	log.Debugf("[sink/kafka] topic=%s\tpartition=%d\toffset=%d", s.Topic, partition, offset)
	return nil
}
