package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithRequiredAcks(1),
		WithBatchSize(50),
		WithBatchBytes(4096),
		WithBatchTimeout(250*time.Millisecond),
		WithTimeouts(2*time.Second, 3*time.Second),
		WithMaxAttempts(5),
		WithAsync(true),
		WithHashByKey(true),
	)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	defer p.Close()

	w := p.writer
	if w.RequiredAcks != kafka.RequiredAcks(1) || w.Compression != kafka.Zstd {
		t.Fatalf("acks/compression not applied: %v %v", w.RequiredAcks, w.Compression)
	}
	if w.BatchSize != 50 || w.BatchBytes != 4096 || w.BatchTimeout != 250*time.Millisecond {
		t.Fatalf("batching not applied: %d %d %v", w.BatchSize, w.BatchBytes, w.BatchTimeout)
	}
	if w.WriteTimeout != 2*time.Second || w.ReadTimeout != 3*time.Second || w.MaxAttempts != 5 {
		t.Fatalf("timeouts/attempts not applied")
	}
	if !w.Async {
		t.Fatal("async not applied")
	}
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Fatalf("hash balancer not applied: %T", w.Balancer)
	}
}
