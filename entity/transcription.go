package entity

import (
	"context"
	"io"
)

// UnknownLanguage is reported when the model does not say which language it heard.
const UnknownLanguage = "unknown"

// TranscriptionUsecase -.
type TranscriptionUsecase interface {
	Transcribe(ctx context.Context, audio UploadedAudio) (TranscriptionResult, error)
	ModelLoaded() bool
}

// UploadedAudio is the audio part of a multipart upload.
type UploadedAudio struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// TranscribeOptions are passed to the model on every call.
type TranscribeOptions struct {
	// Language is an ISO-639-1 hint. Empty means auto detection.
	Language string
	// FP16 enables half precision / accelerated inference where the backend supports it.
	FP16 bool
}

// TranscriptionResult -.
type TranscriptionResult struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// TranscribeResponse is the success body of POST /transcribe.
type TranscribeResponse struct {
	Success       bool    `json:"success"`
	Text          string  `json:"text"`
	Transcription string  `json:"transcription"`
	Language      string  `json:"language"`
	Filename      *string `json:"filename"`
}

// StatusResponse -.
type StatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Model   string `json:"model"`
}

// HealthResponse -.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}
