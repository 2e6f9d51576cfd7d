// Package model holds the speech model used for every transcription.
package model

import (
	"context"
	"errors"
	"sync/atomic"

	"audio_transcription/entity"
)

// ErrNotLoaded is returned by Handle.Transcribe before Load succeeded.
var ErrNotLoaded = errors.New("model not loaded")

// Provider is a speech-to-text backend.
type Provider interface {
	Name() string
	Load(ctx context.Context) error
	Transcribe(ctx context.Context, path string, opts entity.TranscribeOptions) (entity.TranscriptionResult, error)
}

// Handle wraps a Provider with its loaded state. The state only ever goes
// from false to true.
type Handle struct {
	provider Provider
	loaded   atomic.Bool
}

// NewHandle -.
func NewHandle(p Provider) *Handle {
	return &Handle{provider: p}
}

// Load loads the provider once. A failed load leaves the handle unloaded.
func (h *Handle) Load(ctx context.Context) error {
	if h.loaded.Load() {
		return nil
	}
	if err := h.provider.Load(ctx); err != nil {
		return err
	}
	h.loaded.Store(true)
	return nil
}

// Loaded -.
func (h *Handle) Loaded() bool {
	return h.loaded.Load()
}

// Name -.
func (h *Handle) Name() string {
	return h.provider.Name()
}

// Transcribe -.
func (h *Handle) Transcribe(ctx context.Context, path string, opts entity.TranscribeOptions) (entity.TranscriptionResult, error) {
	if !h.loaded.Load() {
		return entity.TranscriptionResult{}, ErrNotLoaded
	}
	return h.provider.Transcribe(ctx, path, opts)
}
