package ui

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/spauka/secretsanta/internal/config"
	contextInternal "github.com/spauka/secretsanta/internal/context"
	"github.com/spauka/secretsanta/pkg/secrets"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type message struct {
	Topic string `json:"topic"`
	Code  string `json:"code"`
	Value string `json:"value,omitempty"`
}

const (
	messageCodePayload = "payload"
	messageCodeError   = "error"
	messageCodeEnd     = "end"
)

type console struct {
	cfg config.Config
}

func (c *console) serveWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)

		return
	}
	defer func() {
		err := ws.Close()
		if err != nil {
			log.Println("close err:", err)
		}
	}()

	ctx, err := contextInternal.SetOSContext(r.Context())
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to set OS context"))

		return
	}

	authorized := false
	for {
		mt, msg, err := ws.ReadMessage()
		if err != nil {
			log.Println(errors.WithMessage(err, "failed to read message"))

			break
		}
		err = c.wsRequest(ctx, ws, mt, msg, &authorized)
		if err != nil {
			if errors.Is(err, errClosed) {
				break
			}

			log.Println(errors.WithMessage(err, "failed to handle request"))

			break
		}
	}
}

var errClosed = errors.New("closed")

//nolint:funlen
func (c *console) wsRequest(
	ctx context.Context, ws *websocket.Conn, mt int, msg []byte, authorized *bool,
) error {
	var m message

	err := json.Unmarshal(msg, &m)
	if err != nil {
		return errors.WithMessage(err, "failed to unmarshal message")
	}

	rw := newResponseWriter(ws, m.Topic)

	if m.Topic == "exit" {
		err = ws.Close()
		if err != nil {
			return errors.WithMessage(err, "failed to close connection")
		}

		done <- struct{}{}

		return errClosed
	}

	// Everything except auth itself requires a verified secret.
	if m.Topic == "auth" {
		return c.authorize(rw, mt, m, authorized)
	}
	if !*authorized {
		return writeMessage(rw, mt, message{
			Topic: m.Topic,
			Code:  messageCodeError,
			Value: "not authorized, send the console secret first",
		})
	}

	log.Printf("recv: %s %s", m.Topic, m.Value)

	err = c.cmdHandle(ctx, rw, m)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to handle command"))

		err = writeMessage(rw, mt, message{
			Topic: m.Topic,
			Code:  messageCodeError,
			Value: err.Error(),
		})
		if err != nil {
			return errors.WithMessage(err, "failed to handle command and write error message")
		}
	}

	return writeMessage(rw, mt, message{
		Topic: m.Topic,
		Code:  messageCodeEnd,
	})
}

func (c *console) authorize(rw *responseWriter, mt int, m message, authorized *bool) error {
	if c.cfg.Console.SecretHash == "" {
		return writeMessage(rw, mt, message{
			Topic: m.Topic,
			Code:  messageCodeError,
			Value: "no console secret configured, run `secretsanta install` first",
		})
	}

	if !secrets.Verify(c.cfg.Console.SecretHash, m.Value) {
		log.Println("console authentication failed")

		return writeMessage(rw, mt, message{
			Topic: m.Topic,
			Code:  messageCodeError,
			Value: "invalid secret",
		})
	}

	*authorized = true

	return writeMessage(rw, mt, message{
		Topic: m.Topic,
		Code:  messageCodeEnd,
	})
}

func writeMessage(rw *responseWriter, mt int, m message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return errors.WithMessage(err, "failed to marshal message")
	}

	return rw.WriteMessage(mt, b)
}

type responseWriter struct {
	mu    sync.Mutex
	conn  *websocket.Conn
	topic string
}

func newResponseWriter(conn *websocket.Conn, topic string) *responseWriter {
	return &responseWriter{topic: topic, conn: conn}
}

func (rw *responseWriter) Write(p []byte) (n int, err error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	b, err := json.Marshal(message{
		Topic: rw.topic,
		Code:  messageCodePayload,
		Value: string(p),
	})
	if err != nil {
		return 0, errors.WithMessage(err, "failed to marshal message")
	}
	err = rw.conn.WriteMessage(websocket.TextMessage, b)
	if err != nil {
		return 0, err
	}

	return len(p), nil
}

func (rw *responseWriter) WriteMessage(messageType int, data []byte) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	return rw.conn.WriteMessage(messageType, data)
}
