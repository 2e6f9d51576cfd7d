package server

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	ttrace "audio_transcription/internal/telemetry/trace"
	traceExporter "audio_transcription/internal/telemetry/trace/exporter"
)

func (s *Server) InitGlobalProvider(name, version, endpoint string) {
	// set global propagator to tracecontext (the default is no-op).
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if endpoint == "" {
		log.Info().Msg("otel endpoint not set, tracing disabled")
		return
	}

	spanExporter, err := traceExporter.NewOTLP(context.Background(), endpoint)
	if err != nil {
		log.Fatal().Err(err).Msgf("failed initializing the tracer exporter")
	}

	tracerProvider, tracerProviderCloseFn, err := ttrace.NewTraceProviderBuilder(name).
		SetVersion(version).
		SetExporter(spanExporter).
		Build()
	if err != nil {
		log.Fatal().Err(err).Msgf("failed initializing the tracer provider")
	}
	s.traceProviderCloseFn = append(s.traceProviderCloseFn, tracerProviderCloseFn)

	otel.SetTracerProvider(tracerProvider)
}
