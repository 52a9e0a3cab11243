package helper

import (
	"fmt"
	"os"

	"github.com/seatgeek/zip-firehose/sink"
	"github.com/seatgeek/zip-firehose/structs"
)

const sinkTypes = "stdout, http, amqp, redis, nsq, kafka or s3"

// GetSink ...
func GetSink() (structs.Sink, error) {
	sinkType := os.Getenv("SINK_TYPE")
	if sinkType == "" {
		return nil, fmt.Errorf("Missing SINK_TYPE: %s", sinkTypes)
	}

	switch sinkType {
	case "stdout":
		return sink.NewStdout()
	case "http":
		return sink.NewHttp()
	case "amqp":
		fallthrough
	case "rabbitmq":
		return sink.NewRabbitmq()
	case "redis":
		return sink.NewRedis()
	case "nsq":
		return sink.NewNSQ()
	case "kafka":
		return sink.NewKafka()
	case "s3":
		return sink.NewS3()
	default:
		return nil, fmt.Errorf("Invalid SINK_TYPE: %s", sinkTypes)
	}
}
