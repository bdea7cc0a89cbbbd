package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoointerview/internal/logger"
)

// AudioSource yields captured audio chunks. Next returns io.EOF when the source
// is exhausted.
type AudioSource interface {
	Next(ctx context.Context) ([]byte, error)
}

type wsAudioMsg struct {
	Type        string `json:"type"`
	ChunkIndex  int64  `json:"chunk_index,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Language    string `json:"language,omitempty"`
	IsFinal     bool   `json:"is_final,omitempty"`
}

type wsTranscriptMsg struct {
	Type       string  `json:"type"`
	ChunkIndex int64   `json:"chunk_index"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"is_final"`
	Code       string  `json:"code,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// WSRecognizer streams audio to the dictation endpoint and turns the transcript
// messages it pushes back into fragments.
type WSRecognizer struct {
	url    string
	source AudioSource
	dialer *websocket.Dialer
	log    *logrus.Entry

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSRecognizer(url string, source AudioSource, log *logrus.Entry) *WSRecognizer {
	if log == nil {
		log = logger.For(nil, "ws_recognizer")
	}
	return &WSRecognizer{
		url:    url,
		source: source,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log,
	}
}

func (r *WSRecognizer) Start(ctx context.Context, language string) (<-chan Fragment, error) {
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.conn = conn
	r.mu.Unlock()

	out := make(chan Fragment, 16)
	var wmu sync.Mutex
	write := func(m wsAudioMsg) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(m)
	}

	go r.pump(ctx, language, write)

	done := make(chan struct{})
	go func() {
		defer close(out)
		defer close(done)
		defer r.detach(conn)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg wsTranscriptMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "transcript":
				select {
				case out <- Fragment{Text: msg.Text, Final: msg.IsFinal, Confidence: msg.Confidence}:
				case <-ctx.Done():
					return
				}
			case "error":
				r.log.WithFields(logrus.Fields{"code": msg.Code, "message": msg.Message}).Warn("dictation error")
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		r.detach(conn)
	}()

	return out, nil
}

func (r *WSRecognizer) pump(ctx context.Context, language string, write func(wsAudioMsg) error) {
	if r.source == nil {
		return
	}
	var idx int64
	for {
		chunk, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			_ = write(wsAudioMsg{Type: "end_stream"})
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				r.log.WithError(err).Warn("audio source failed")
			}
			return
		}
		idx++
		if err := write(wsAudioMsg{
			Type:        "audio_chunk",
			ChunkIndex:  idx,
			AudioBase64: base64.StdEncoding.EncodeToString(chunk),
			Language:    language,
		}); err != nil {
			return
		}
	}
}

func (r *WSRecognizer) detach(conn *websocket.Conn) {
	r.mu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.mu.Unlock()
	_ = conn.Close()
}

// Stop closes the connection. Safe to call repeatedly.
func (r *WSRecognizer) Stop() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}
