/*
Copyright © 2024 the TokTrans authors.
This file is part of TokTrans.

TokTrans is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

TokTrans is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with TokTrans.  If not, see <http://www.gnu.org/licenses/>.
*/

package toktrans

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebServer serves the live status of a running simulation: a JSON
// progress snapshot at /progress and a websocket sample stream at
// /stream. It runs until the listener fails; start it in its own
// goroutine when Sampling.EnableLiveStreaming is set.
func (m *Model) WebServer(httpPort string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/progress", m.progressHandler)
	mux.HandleFunc("/stream", m.streamHandler)
	return http.ListenAndServe(":"+httpPort, mux)
}

func (m *Model) progressHandler(w http.ResponseWriter, r *http.Request) {
	p := m.Progress()
	out := struct {
		Time      float64   `json:"time"`
		Step      int       `json:"step"`
		LastDt    float64   `json:"last_dt"`
		Converged bool      `json:"converged"`
		Ti        []float64 `json:"Ti,omitempty"`
		Te        []float64 `json:"Te,omitempty"`
		Ne        []float64 `json:"ne,omitempty"`
	}{Time: p.Time, Step: p.Step, LastDt: p.LastDt, Converged: p.Converged}
	if p.Profiles != nil {
		out.Ti = p.Profiles.Ti
		out.Te = p.Profiles.Te
		out.Ne = p.Profiles.Ne
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// streamHandler upgrades the connection and forwards captured samples
// until the subscriber disconnects. A slow subscriber misses samples;
// it never stalls the simulation loop.
func (m *Model) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for p := range m.Subscribe() {
		if err := conn.WriteJSON(p); err != nil {
			return
		}
	}
}
