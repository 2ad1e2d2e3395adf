// Package tts is a small client for the Cloud Text-to-Speech REST API.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/network"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultEndpoint = "https://texttospeech.googleapis.com/v1beta1"

// ErrEmptyInput is returned when there is no text to synthesize.
var ErrEmptyInput = errors.New("nothing to synthesize")

// Voice is one entry of the voices listing.
type Voice struct {
	LanguageCodes          []string `json:"languageCodes"`
	Name                   string   `json:"name"`
	SsmlGender             string   `json:"ssmlGender"`
	NaturalSampleRateHertz int      `json:"naturalSampleRateHertz"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

type SynthesisInput struct {
	Text string `json:"text,omitempty"`
	SSML string `json:"ssml,omitempty"`
}

// VoiceSelection picks a voice; a bare language code lets the service choose.
type VoiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
	SsmlGender   string `json:"ssmlGender,omitempty"`
}

type AudioConfig struct {
	AudioEncoding   string  `json:"audioEncoding"`
	SpeakingRate    float64 `json:"speakingRate,omitempty"`
	Pitch           float64 `json:"pitch,omitempty"`
	SampleRateHertz int     `json:"sampleRateHertz,omitempty"`
}

type SynthesizeRequest struct {
	Input       SynthesisInput `json:"input"`
	Voice       VoiceSelection `json:"voice"`
	AudioConfig AudioConfig    `json:"audioConfig"`
}

// SynthesizeResponse carries the decoded audio bytes.
type SynthesizeResponse struct {
	AudioContent []byte      `json:"audioContent"`
	AudioConfig  AudioConfig `json:"audioConfig"`
}

// Client talks to the Text-to-Speech API with the Gemini API key.
type Client struct {
	apiKey     string
	baseURL    string
	cfg        config.TTSConfig
	httpClient *http.Client
	logger     *zap.Logger

	backoffFactory func() backoff.BackOff
}

func NewClient(cfg config.TTSConfig, apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: an API key is required for text-to-speech", config.ErrConfigMissing)
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    endpoint,
		cfg:        cfg,
		httpClient: network.NewAPIClient(cfg.APITimeout, logger),
		logger:     logger.Named("tts"),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = time.Minute
			return b
		},
	}, nil
}

// ListVoices returns the voices for languageCode, or every voice when it is blank.
func (c *Client) ListVoices(ctx context.Context, languageCode string) ([]Voice, error) {
	endpoint := c.baseURL + "/voices"
	if languageCode != "" {
		endpoint += "?" + url.Values{"languageCode": {languageCode}}.Encode()
	}
	var resp voicesResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("Listed voices", zap.String("language_code", languageCode), zap.Int("count", len(resp.Voices)))
	return resp.Voices, nil
}

// Speak synthesizes text with the configured language and encoding.
func (c *Client) Speak(ctx context.Context, text string) (*SynthesizeResponse, error) {
	return c.Synthesize(ctx, SynthesizeRequest{
		Input:       SynthesisInput{Text: text},
		Voice:       VoiceSelection{LanguageCode: c.cfg.LanguageCode},
		AudioConfig: AudioConfig{AudioEncoding: c.cfg.AudioEncoding},
	})
}

func (c *Client) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResponse, error) {
	if strings.TrimSpace(req.Input.Text) == "" && strings.TrimSpace(req.Input.SSML) == "" {
		return nil, ErrEmptyInput
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesize request: %w", err)
	}
	var resp SynthesizeResponse
	start := time.Now()
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/text:synthesize", body, &resp); err != nil {
		return nil, err
	}
	c.logger.Info("Speech synthesized",
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(resp.AudioContent)),
		zap.String("encoding", resp.AudioConfig.AudioEncoding))
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	operation := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Network error during TTS request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			c.logger.Error("TTS API returned error status", zap.Int("status", resp.StatusCode), zap.String("response", string(data)))
			apiErr := fmt.Errorf("tts API error: status %d, body: %s", resp.StatusCode, string(data))
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
				return apiErr
			default:
				return backoff.Permanent(apiErr)
			}
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		return nil
	}
	return backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx))
}
