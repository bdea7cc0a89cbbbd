package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type SpeechOptions struct {
	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
	// Model is the recognizer model, "latest_short" suits answer-sized chunks.
	Model string
}

type GoogleSpeech struct {
	c    *speech.Client
	opts SpeechOptions
}

func NewGoogleSpeech(ctx context.Context, opts SpeechOptions) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Encoding == speechpb.RecognitionConfig_ENCODING_UNSPECIFIED {
		opts.Encoding = speechpb.RecognitionConfig_LINEAR16
	}
	if opts.SampleRateHz == 0 {
		opts.SampleRateHz = 16000
	}
	if opts.Model == "" {
		opts.Model = "latest_short"
	}
	return &GoogleSpeech{c: c, opts: opts}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// Transcribe recognizes one chunk. language example: "en-US", "id-ID".
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.opts.Encoding,
			SampleRateHertz:            g.opts.SampleRateHz,
			LanguageCode:               language,
			Model:                      g.opts.Model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}
	text, conf := joinResults(resp.Results)
	return text, conf, nil
}

// joinResults concatenates the top alternative of each consecutive result and
// averages their confidence.
func joinResults(results []*speechpb.SpeechRecognitionResult) (string, float64) {
	var parts []string
	var sum float64
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		top := r.Alternatives[0]
		if t := strings.TrimSpace(top.Transcript); t != "" {
			parts = append(parts, t)
			sum += float64(top.Confidence)
		}
	}
	if len(parts) == 0 {
		return "", 0
	}
	return strings.Join(parts, " "), sum / float64(len(parts))
}
