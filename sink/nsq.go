package sink

import (
	"fmt"

	"github.com/nsqio/go-nsq"
	log "github.com/sirupsen/logrus"
)

type publisher interface {
	Publish(topic string, body []byte) error
	Stop()
}

// NSQSink publishes each chunk as one message on a topic.
type NSQSink struct {
	producer  publisher
	topicName string
	queue     *queue
}

// NewNSQ ...
func NewNSQ() (*NSQSink, error) {
	addrNSQ, err := requireEnv("nsq", "SINK_NSQ_ADDR", "127.0.0.1:4150")
	if err != nil {
		return nil, err
	}
	log.Infof("[sink/nsq] SINK_NSQ_ADDR=%s", addrNSQ)

	topicName, err := requireEnv("nsq", "SINK_NSQ_TOPIC_NAME", "zip-firehose")
	if err != nil {
		return nil, err
	}
	log.Infof("[sink/nsq] SINK_NSQ_TOPIC_NAME=%s", topicName)

	size, err := queueSize()
	if err != nil {
		return nil, err
	}

	conf := nsq.NewConfig()
	producer, err := nsq.NewProducer(addrNSQ, conf)
	if err != nil {
		return nil, fmt.Errorf("[sink/nsq] Failed to connect to NSQ: %v", err)
	}

	return newNSQSink(producer, topicName, size), nil
}

func newNSQSink(producer publisher, topicName string, size int) *NSQSink {
	return &NSQSink{
		producer:  producer,
		topicName: topicName,
		queue:     newQueue("nsq", size),
	}
}

// Start ...
func (s *NSQSink) Start() error {
	// a single writer keeps chunk order
	s.queue.start(func(data []byte) error {
		return s.producer.Publish(s.topicName, data)
	})
	return nil
}

// Stop ...
func (s *NSQSink) Stop() error {
	defer s.producer.Stop()
	return s.queue.stop()
}

// Abort ...
func (s *NSQSink) Abort(cause error) error {
	defer s.producer.Stop()
	return s.queue.abort(cause)
}

// Put ..
func (s *NSQSink) Put(data []byte) error {
	return s.queue.put(data)
}
