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
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/sirupsen/logrus"
)

// KafkaSink is an append-only audit trail of every accepted control
// change: one record per call to Set that actually changed a cell. It
// never consumes — the control surface's only inbound transports are
// WSBridge and RedisBridge; this is a write-only side effect of Set,
// grounded against the same producer this repo's stream-routing ancestor
// used for its Kafka output.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// ChangeRecord is one audit-trail entry.
type ChangeRecord struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp_unix_ms"`
}

// NewKafkaSink dials brokers with acks-all durability (an audit trail is
// worthless if the broker silently drops it) and returns a sink that
// writes to topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{producer: producer, topic: topic}, nil
}

// Record appends one change to the audit trail, keyed by parameter name
// so a downstream compaction policy can retain only the latest value per
// parameter if desired.
func (k *KafkaSink) Record(name string, value float64, at time.Time) {
	payload, err := json.Marshal(ChangeRecord{Name: name, Value: value, Timestamp: at.UnixNano() / int64(time.Millisecond)})
	if err != nil {
		logrus.WithError(err).Warning("control: failed to marshal audit record")
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(name),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		logrus.WithError(err).Warning("control: failed to append audit record")
	}
}

// Close shuts down the underlying producer.
func (k *KafkaSink) Close() error {
	return k.producer.Close()
}

// AuditedBridge wraps a Bridge so every successful Set is also recorded
// to a KafkaSink, without the Bridge itself needing to know Kafka
// exists.
type AuditedBridge struct {
	*Bridge
	sink *KafkaSink
}

// NewAuditedBridge composes b with sink.
func NewAuditedBridge(b *Bridge, sink *KafkaSink) *AuditedBridge {
	return &AuditedBridge{Bridge: b, sink: sink}
}

// Set applies the update via the embedded Bridge and, if it changed
// anything, appends one record to the audit trail.
func (a *AuditedBridge) Set(name string, value float64) int {
	changed := a.Bridge.Set(name, value)
	if changed > 0 {
		a.sink.Record(name, value, time.Now())
	}
	return changed
}

// ApplyBlob applies updates through a.Set rather than the embedded
// Bridge's — Go's embedding doesn't give ApplyBlob virtual dispatch
// into the override above, so without this, updates delivered through
// an AuditedBridge would silently bypass the audit trail.
func (a *AuditedBridge) ApplyBlob(updates map[string]float64) (Params, bool) {
	changed := false
	for name, value := range updates {
		if a.Set(name, value) > 0 {
			changed = true
		}
	}
	return a.Bridge.Snapshot(), changed
}
