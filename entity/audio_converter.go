package entity

import "context"

// AudioConverter normalises an audio file into something the model backend reads.
type AudioConverter interface {
	ToWav16kMono(ctx context.Context, inputPath, outputPath string) error
}
