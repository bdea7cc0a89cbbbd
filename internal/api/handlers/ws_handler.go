package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
)

type WSHandler struct {
	interviews services.InterviewService
	dictation  services.DictationService
	redis      *redis.Client
	log        *logrus.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(interviews services.InterviewService, dictation services.DictationService, rdb *redis.Client, log *logrus.Logger, allowOrigin func(*http.Request) bool) *WSHandler {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &WSHandler{
		interviews: interviews,
		dictation:  dictation,
		redis:      rdb,
		log:        log,
		upgrader:   websocket.Upgrader{CheckOrigin: allowOrigin},
	}
}

const drainIdle = 5 * time.Second

type wsClientMsg struct {
	Type        string `json:"type"` // audio_chunk|end_stream|end
	ChunkIndex  int64  `json:"chunk_index"`
	AudioBase64 string `json:"audio_base64"`
	AudioURL    string `json:"audio_url"`
	Language    string `json:"language"`
	IsFinal     bool   `json:"is_final"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func wsError(code utils.Code, msg string) models.DictationMessage {
	return models.DictationMessage{Type: "error", Code: string(code), Message: msg}
}

// Dictation streams candidate audio in and transcripts out for one rehearsal.
func (h *WSHandler) Dictation(c *gin.Context) {
	const op = "WSHandler.Dictation"

	sessionID, ok := requireSessionID(c, op)
	if !ok {
		return
	}

	rec, err := h.interviews.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if rec.Status == models.InterviewCompleted {
		writeError(c, utils.E(utils.CodeConflict, op, "interview already completed", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.log.WithField("session_id", sessionID)
	channel := models.TranscriptChannel(sessionID)
	pubsub := h.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	// reader: WS -> buffer + stream. ended is written before readDone closes.
	readDone := make(chan struct{})
	ended := false
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(wsError(utils.CodeInvalidArgument, "invalid json"))
				continue
			}

			switch msg.Type {
			case "audio_chunk":
				var audioBase64, audioURL *string
				if msg.AudioBase64 != "" {
					audioBase64 = &msg.AudioBase64
				}
				if msg.AudioURL != "" {
					audioURL = &msg.AudioURL
				}
				language := msg.Language
				if language == "" {
					language = rec.Config.Language
				}

				if _, err := h.dictation.Enqueue(ctx, sessionID, msg.ChunkIndex, language, audioURL, audioBase64); err != nil {
					log.WithError(err).WithField("chunk_index", msg.ChunkIndex).Warn("dictation chunk rejected")
					code := utils.CodeOf(err)
					if code == "" {
						code = utils.CodeInternal
					}
					_ = wc.writeJSON(wsError(code, "failed to queue audio chunk"))
					continue
				}
				_ = wc.writeJSON(models.DictationMessage{Type: "status", Status: "queued", Message: "audio chunk queued", ChunkIndex: msg.ChunkIndex})

			case "end_stream", "end":
				_ = wc.writeJSON(models.DictationMessage{Type: "status", Status: "ended", Message: "dictation ended"})
				ended = true
				return

			default:
				_ = wc.writeJSON(wsError(utils.CodeInvalidArgument, "unknown message type"))
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS. After end_stream, in-flight transcripts are
	// drained until the channel stays quiet for drainIdle.
	msgs := pubsub.Channel()
	done := readDone
	var drain <-chan time.Time
	for {
		select {
		case <-done:
			if !ended {
				return
			}
			done = nil
			drain = time.After(drainIdle)
		case <-drain:
			return
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// forward as-is (workers publish JSON)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
			if drain != nil {
				drain = time.After(drainIdle)
			}
		}
	}
}
