package geminilive

import (
	"context"
	"fmt"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the Live API model used when none is configured.
	DefaultModel = "models/gemini-2.0-flash-exp"

	// DefaultAPIVersion is the API version the Live endpoint is served under.
	DefaultAPIVersion = "v1alpha"
)

// Client is a Gemini Live API client. It dials bidirectional audio
// sessions; all wire-level concerns belong to the genai SDK.
type Client struct {
	config *clientConfig
}

// clientConfig holds the client configuration.
type clientConfig struct {
	apiKey            string
	model             string
	apiVersion        string
	voice             string
	systemInstruction string
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new Gemini Live client.
//
// The key is not validated here: a missing or invalid key surfaces as a
// connection error from Connect.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		apiKey:     apiKey,
		model:      DefaultModel,
		apiVersion: DefaultAPIVersion,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithModel sets the Live API model.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAPIVersion sets the API version of the Live endpoint.
func WithAPIVersion(version string) Option {
	return func(c *clientConfig) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithVoice sets the prebuilt voice used for audio responses.
func WithVoice(name string) Option {
	return func(c *clientConfig) {
		c.voice = name
	}
}

// WithSystemInstruction sets the system instruction for the session.
func WithSystemInstruction(text string) Option {
	return func(c *clientConfig) {
		c.systemInstruction = text
	}
}

// Connect dials one Live API session with audio response modality.
func (c *Client) Connect(ctx context.Context) (Session, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.config.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: c.config.apiVersion},
	})
	if err != nil {
		return nil, fmt.Errorf("geminilive: create client: %w", err)
	}

	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if c.config.systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.config.systemInstruction, genai.RoleUser)
	}
	if c.config.voice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.config.voice},
			},
		}
	}

	sess, err := client.Live.Connect(ctx, c.config.model, cfg)
	if err != nil {
		if e, ok := err.(*apierror.APIError); ok {
			err = e.Unwrap()
		}
		return nil, fmt.Errorf("geminilive: connect: %w", err)
	}

	return newLiveSession(sess), nil
}

// Dialer opens Live sessions. *Client is the production implementation;
// tests substitute fakes.
type Dialer interface {
	Connect(ctx context.Context) (Session, error)
}

var _ Dialer = (*Client)(nil)
