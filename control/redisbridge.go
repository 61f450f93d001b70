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

	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
)

// RedisBridge mirrors a Bridge over a Redis pub/sub pair: updates
// published as a JSON blob on InChannel are applied, and the resulting
// snapshot is republished on OutChannel whenever anything changed.
type RedisBridge struct {
	bridge     Mutator
	client     *redis.Client
	inChannel  string
	outChannel string
	stop       chan struct{}
}

// RedisOptions configures the Redis connection and channel names.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	InChannel  string
	OutChannel string
}

// NewRedisBridge dials Redis and wraps b for pub/sub access. b may be a
// plain *Bridge or an *AuditedBridge. The caller must call Run to start
// the subscription loop and Close to tear it down.
func NewRedisBridge(b Mutator, opts RedisOptions) *RedisBridge {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisBridge{
		bridge:     b,
		client:     client,
		inChannel:  opts.InChannel,
		outChannel: opts.OutChannel,
		stop:       make(chan struct{}),
	}
}

// Run subscribes to InChannel and applies every incoming blob until
// Close is called. Meant to run in its own goroutine; it returns when
// the subscription is closed.
func (r *RedisBridge) Run() {
	sub := r.client.Subscribe(r.inChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-r.stop:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisBridge) handle(payload string) {
	var updates map[string]float64
	if err := json.Unmarshal([]byte(payload), &updates); err != nil {
		logrus.WithError(err).Warning("control: malformed redis control blob, ignoring")
		return
	}
	snapshot, changed := r.bridge.ApplyBlob(updates)
	if !changed {
		return
	}
	r.publish(snapshot)
}

func (r *RedisBridge) publish(snapshot Params) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		logrus.WithError(err).Warning("control: failed to marshal snapshot for redis")
		return
	}
	if err := r.client.Publish(r.outChannel, payload).Err(); err != nil {
		logrus.WithError(err).Warning("control: failed to publish snapshot")
	}
}

// Close stops the subscription loop and closes the underlying client.
func (r *RedisBridge) Close() error {
	close(r.stop)
	return r.client.Close()
}
