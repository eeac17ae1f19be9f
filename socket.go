/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var (
	errSocketClosed   = errors.New("socket closed")
	errSendBufferFull = errors.New("send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// socket adapts a websocket connection to the Board's Conn.
type socket struct {
	id   string
	conn *websocket.Conn
	send chan Message

	done      chan struct{}
	closeOnce sync.Once
}

func newSocket(conn *websocket.Conn, buffer int) *socket {
	return &socket{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, buffer),
		done: make(chan struct{}),
	}
}

func (s *socket) ID() string { return s.id }

// Send queues msg without blocking.
func (s *socket) Send(msg Message) error {
	select {
	case <-s.done:
		return errSocketClosed
	default:
	}

	select {
	case s.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (s *socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// readPump feeds frames to the board until the channel closes, then runs
// the disconnect cleanup.
func (s *socket) readPump(cfg *Config, b *Board) {
	defer func() {
		b.disconnect(s)
		_ = s.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "ERROR: Read from %s failed: %v", s.id, err)
			}
			return
		}

		b.handle(s, data)
	}
}

func (s *socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// serveWS upgrades the request and attaches the new connection to the
// board. A room query parameter joins immediately, as if the client had
// sent a join event with the given room and username.
func serveWS(cfg *Config, b *Board) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Upgrade for %s failed: %v", realIP(r), err)
			return
		}

		s := newSocket(conn, cfg.sendBuffer)
		b.attach(s)

		logf(cfg, "SERVE: Connection %s from %s", s.id, realIP(r))

		go s.writePump()

		q := r.URL.Query()
		if q.Has("room") {
			b.join(s, q.Get("username"), q.Get("room"))
		}

		s.readPump(cfg, b)
	}
}
