// Copyright 2015-2016 trivago GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package control

import (
	"testing"

	"github.com/Shopify/sarama"
)

// fakeProducer is an in-memory sarama.SyncProducer stand-in so
// AuditedBridge's dispatch can be tested without a live broker.
type fakeProducer struct {
	sent []*sarama.ProducerMessage
}

func (f *fakeProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	f.sent = append(f.sent, msg)
	return 0, int64(len(f.sent) - 1), nil
}

func (f *fakeProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	f.sent = append(f.sent, msgs...)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestAuditedBridgeApplyBlobRecordsOnlyActualChanges(t *testing.T) {
	b := newTestBridge(t, nil, 1)
	producer := &fakeProducer{}
	sink := &KafkaSink{producer: producer, topic: "control-changes"}
	audited := NewAuditedBridge(b, sink)

	var mutator Mutator = audited
	if _, changed := mutator.ApplyBlob(map[string]float64{"mix:Gain 2": 0.75}); !changed {
		t.Fatal("ApplyBlob() changed = false, want true")
	}
	if len(producer.sent) != 1 {
		t.Fatalf("producer recorded %d messages, want 1", len(producer.sent))
	}

	// Re-applying the same value changes nothing and must not record again.
	if _, changed := mutator.ApplyBlob(map[string]float64{"mix:Gain 2": 0.75}); changed {
		t.Fatal("re-applying the same value changed = true, want false")
	}
	if len(producer.sent) != 1 {
		t.Fatalf("producer recorded %d messages after no-op update, want still 1", len(producer.sent))
	}
}

func TestAuditedBridgeSetUnknownNameRecordsNothing(t *testing.T) {
	b := newTestBridge(t, nil, 1)
	producer := &fakeProducer{}
	sink := &KafkaSink{producer: producer, topic: "control-changes"}
	audited := NewAuditedBridge(b, sink)

	if changed := audited.Set("mix:Nonexistent", 1); changed != 0 {
		t.Fatalf("Set() on unknown name changed = %d, want 0", changed)
	}
	if len(producer.sent) != 0 {
		t.Fatalf("producer recorded %d messages, want 0", len(producer.sent))
	}
}
