package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/yoointerview/internal/logger"
	"github.com/yoockh/yoointerview/internal/utils"
)

var ErrSpeaking = errors.New("synthesis in progress")

type Options struct {
	Language string
	Logger   *logrus.Entry

	// OnPreview receives non-final text. It is never accumulated.
	OnPreview func(text string)
	// OnTranscript receives the accumulated final transcript after each final fragment.
	OnTranscript func(transcript string)
	// OnGate is called when the may-answer gate opens or closes.
	OnGate func(open bool)
}

type Coordinator struct {
	synth Synthesizer
	rec   Recognizer
	opts  Options

	mu          sync.Mutex
	speaking    bool
	speakGen    uint64
	speakCancel context.CancelFunc

	listening    bool
	listenGen    uint64
	listenCancel context.CancelFunc

	finals  []string
	preview string
	lastErr error
}

// NewCoordinator accepts a nil synthesizer or recognizer; the missing side
// behaves as an engine that completes immediately.
func NewCoordinator(synth Synthesizer, rec Recognizer, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logger.For(nil, "speech")
	}
	if opts.Language == "" {
		opts.Language = "en-US"
	}
	return &Coordinator{synth: synth, rec: rec, opts: opts}
}

// Speak reads u aloud. Recognition is stopped first and the may-answer gate
// stays closed until playback finishes. Engine errors are logged and recorded
// in LastError; Speak itself always returns normally.
func (c *Coordinator) Speak(ctx context.Context, u Utterance) {
	const op = "SpeechCoordinator.Speak"

	if strings.TrimSpace(u.Text) == "" {
		return
	}

	c.StopListening()

	c.mu.Lock()
	if c.speakCancel != nil {
		c.speakCancel()
	}
	sctx, cancel := context.WithCancel(ctx)
	c.speakGen++
	gen := c.speakGen
	c.speakCancel = cancel
	c.speaking = true
	c.mu.Unlock()
	c.notifyGate(false)

	var err error
	if c.synth != nil {
		if u.Language == "" {
			u.Language = c.opts.Language
		}
		err = c.synth.Speak(sctx, u)
	}
	cancel()

	c.mu.Lock()
	current := gen == c.speakGen
	if current {
		c.speaking = false
		c.speakCancel = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.lastErr = utils.SpeechEngineError(op, err)
	}
	c.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.opts.Logger.WithError(err).WithField("persona", u.Persona).Warn("synthesis failed, continuing")
	}
	if current {
		c.notifyGate(true)
	}
}

// StopSpeaking interrupts playback. Safe when nothing is playing.
func (c *Coordinator) StopSpeaking() {
	c.mu.Lock()
	cancel := c.speakCancel
	wasSpeaking := c.speaking
	c.speaking = false
	c.speakCancel = nil
	c.speakGen++
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.synth != nil && wasSpeaking {
		c.synth.Cancel()
	}
	if wasSpeaking {
		c.notifyGate(true)
	}
}

// Listen starts dictation. Final fragments are appended to the transcript and
// non-final ones only update the preview. A recognizer that fails to start is
// logged and leaves the candidate free to type.
func (c *Coordinator) Listen(ctx context.Context) error {
	const op = "SpeechCoordinator.Listen"

	c.mu.Lock()
	if c.speaking {
		c.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "cannot listen while speaking", ErrSpeaking)
	}
	if c.listening || c.rec == nil {
		c.mu.Unlock()
		return nil
	}
	lctx, cancel := context.WithCancel(ctx)
	c.listenGen++
	gen := c.listenGen
	c.listening = true
	c.listenCancel = cancel
	c.preview = ""
	c.mu.Unlock()

	ch, err := c.rec.Start(lctx, c.opts.Language)
	if err != nil {
		cancel()
		c.mu.Lock()
		if gen == c.listenGen {
			c.listening = false
			c.listenCancel = nil
		}
		c.lastErr = utils.SpeechEngineError(op, err)
		c.mu.Unlock()
		c.opts.Logger.WithError(err).Warn("recognition failed to start")
		return nil
	}

	go c.consume(lctx, gen, ch)
	return nil
}

func (c *Coordinator) consume(ctx context.Context, gen uint64, ch <-chan Fragment) {
	defer c.settle(gen)
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-ch:
			if !ok {
				return
			}
			c.deliver(ctx, gen, f)
		}
	}
}

// settle clears the listening state once generation gen stops, unless a newer
// Listen already replaced it.
func (c *Coordinator) settle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.listenGen {
		return
	}
	if c.listenCancel != nil {
		c.listenCancel()
	}
	c.listening = false
	c.listenCancel = nil
	c.preview = ""
}

func (c *Coordinator) deliver(ctx context.Context, gen uint64, f Fragment) {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return
	}

	c.mu.Lock()
	// fragments racing a stop are dropped
	if ctx.Err() != nil || gen != c.listenGen {
		c.mu.Unlock()
		return
	}
	if f.Final {
		c.finals = append(c.finals, text)
		c.preview = ""
		transcript := strings.Join(c.finals, " ")
		c.mu.Unlock()
		if c.opts.OnTranscript != nil {
			c.opts.OnTranscript(transcript)
		}
		return
	}
	c.preview = text
	c.mu.Unlock()
	if c.opts.OnPreview != nil {
		c.opts.OnPreview(text)
	}
}

// StopListening ends dictation. Safe when nothing is listening.
func (c *Coordinator) StopListening() {
	c.mu.Lock()
	if !c.listening {
		c.mu.Unlock()
		return
	}
	cancel := c.listenCancel
	c.listening = false
	c.listenCancel = nil
	c.listenGen++
	c.preview = ""
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := c.rec.Stop(); err != nil {
		c.opts.Logger.WithError(err).Debug("recognizer stop")
	}
}

// Stop halts both sides. Used on pause, page hide and teardown.
func (c *Coordinator) Stop() {
	c.StopSpeaking()
	c.StopListening()
}

// MayAnswer is false while synthesis is active.
func (c *Coordinator) MayAnswer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.speaking
}

func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

func (c *Coordinator) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

func (c *Coordinator) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.finals, " ")
}

func (c *Coordinator) Preview() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// ResetTranscript discards accumulated text before a new question.
func (c *Coordinator) ResetTranscript() {
	c.mu.Lock()
	c.finals = nil
	c.preview = ""
	c.mu.Unlock()
}

// LastError returns the most recent engine failure, if any.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Coordinator) notifyGate(open bool) {
	if c.opts.OnGate != nil {
		c.opts.OnGate(open)
	}
}
