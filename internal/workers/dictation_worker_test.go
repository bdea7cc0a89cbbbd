package workers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
)

type fakeDictation struct {
	mu       sync.Mutex
	statuses []string
	text     string
}

func (f *fakeDictation) Enqueue(context.Context, string, int64, string, *string, *string) (*models.DictationChunk, error) {
	return nil, errors.New("not used")
}

func (f *fakeDictation) MarkSTT(_ context.Context, _ string, _ int64, text string, _ float64, status string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.text = text
	return nil
}

func (f *fakeDictation) ListBySession(context.Context, string, int64) ([]models.DictationChunk, error) {
	return nil, nil
}

type fakeSTT struct {
	got      []byte
	language string
	err      error
}

func (s *fakeSTT) Transcribe(_ context.Context, audio []byte, language string) (string, float64, error) {
	s.got, s.language = audio, language
	if s.err != nil {
		return "", 0, s.err
	}
	return "hello world", 0.9, nil
}

func (s *fakeSTT) Close() error { return nil }

type captured struct {
	channel string
	msg     models.DictationMessage
}

func newTestPool(d *fakeDictation, s *fakeSTT) *DictationWorkerPool {
	l := logrus.New()
	l.SetOutput(io.Discard)
	p := &DictationWorkerPool{Dictation: d, STT: s, Logger: l}
	p.defaults()
	return p
}

func TestParseJob(t *testing.T) {
	job, ok := parseJob(map[string]any{"session_id": "s1", "chunk_index": "3", "language": "id", "audio_base64": "AA=="})
	if !ok || job.ChunkIndex != 3 || job.Language != "id-ID" || job.AudioBase64 != "AA==" {
		t.Fatalf("job=%+v ok=%v", job, ok)
	}
	for _, bad := range []map[string]any{
		{"chunk_index": "1"},
		{"session_id": "s1", "chunk_index": "x"},
		{"session_id": "s1", "chunk_index": "0"},
	} {
		if _, ok := parseJob(bad); ok {
			t.Fatalf("parseJob(%v) accepted", bad)
		}
	}
}

func TestProcess_TranscribesBase64Chunk(t *testing.T) {
	d := &fakeDictation{}
	s := &fakeSTT{}
	p := newTestPool(d, s)

	raw := []byte{1, 2, 3, 4}
	job := dictationJob{
		SessionID:   "s1",
		ChunkIndex:  2,
		Language:    "en-US",
		AudioBase64: "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(raw),
	}

	var out []captured
	p.process(context.Background(), job, func(_ context.Context, ch string, m models.DictationMessage) {
		out = append(out, captured{ch, m})
	})

	if string(s.got) != string(raw) || s.language != "en-US" {
		t.Fatalf("stt got %v %q", s.got, s.language)
	}
	if len(d.statuses) != 2 || d.statuses[0] != models.STTProcessing || d.statuses[1] != models.STTDone || d.text != "hello world" {
		t.Fatalf("statuses=%v text=%q", d.statuses, d.text)
	}
	if len(out) != 2 {
		t.Fatalf("published %d messages", len(out))
	}
	last := out[1]
	if last.channel != "dictation:s1:transcript" || last.msg.Type != "transcript" || last.msg.Text != "hello world" || !last.msg.IsFinal || last.msg.ChunkIndex != 2 {
		t.Fatalf("transcript message=%+v", last)
	}
}

func TestProcess_FetchesAudioURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("pcm"))
	}))
	defer srv.Close()

	d := &fakeDictation{}
	s := &fakeSTT{}
	p := newTestPool(d, s)
	noop := func(context.Context, string, models.DictationMessage) {}

	p.process(context.Background(), dictationJob{SessionID: "s1", ChunkIndex: 1, AudioURL: srv.URL + "/a.wav"}, noop)
	if string(s.got) != "pcm" {
		t.Fatalf("fetched %q", s.got)
	}

	var last models.DictationMessage
	p.process(context.Background(), dictationJob{SessionID: "s1", ChunkIndex: 2, AudioURL: srv.URL + "/missing"}, func(_ context.Context, _ string, m models.DictationMessage) {
		last = m
	})
	if last.Type != "status" || last.Status != models.STTFailed {
		t.Fatalf("missing audio message=%+v", last)
	}
}

func TestProcess_ReportsSTTFailure(t *testing.T) {
	d := &fakeDictation{}
	s := &fakeSTT{err: errors.New("quota")}
	p := newTestPool(d, s)

	var msgs []models.DictationMessage
	p.process(context.Background(), dictationJob{SessionID: "s1", ChunkIndex: 1, AudioBase64: "AAAA"}, func(_ context.Context, _ string, m models.DictationMessage) {
		msgs = append(msgs, m)
	})
	if got := d.statuses[len(d.statuses)-1]; got != models.STTFailed {
		t.Fatalf("final status=%s", got)
	}
	if last := msgs[len(msgs)-1]; last.Status != models.STTFailed || last.Message != "stt failed" {
		t.Fatalf("last message=%+v", last)
	}
}
