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
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSBridge exposes a Bridge over a websocket: every connected client
// receives a full Params snapshot on connect and after every change, and
// may push `{"name": value, ...}` blobs to update parameters in place.
type WSBridge struct {
	bridge   Mutator
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewWSBridge wraps b for websocket access. b may be a plain *Bridge or
// an *AuditedBridge — either way ApplyBlob is what's called. The
// upgrader accepts any origin: the control surface is assumed to sit
// behind the host's own network boundary, not to be exposed directly to
// untrusted browsers.
func NewWSBridge(b Mutator) *WSBridge {
	return &WSBridge{
		bridge:  b,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs its read loop until the
// client disconnects. Register on the host's mux, e.g. at "/control".
func (w *WSBridge) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		logrus.WithError(err).Warning("control: websocket upgrade failed")
		return
	}
	defer conn.Close()

	w.addClient(conn)
	defer w.removeClient(conn)

	if err := conn.WriteJSON(w.bridge.Snapshot()); err != nil {
		return
	}

	for {
		var updates map[string]float64
		if err := conn.ReadJSON(&updates); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Info("control: websocket client disconnected unexpectedly")
			}
			return
		}
		snapshot, changed := w.bridge.ApplyBlob(updates)
		if !changed {
			continue
		}
		w.broadcast(snapshot)
	}
}

func (w *WSBridge) addClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[conn] = struct{}{}
}

func (w *WSBridge) removeClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, conn)
}

func (w *WSBridge) broadcast(snapshot Params) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		logrus.WithError(err).Warning("control: failed to marshal snapshot")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for conn := range w.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.WithError(err).Info("control: dropping unresponsive websocket client")
			go conn.Close()
		}
	}
}
