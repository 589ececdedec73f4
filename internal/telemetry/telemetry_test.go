package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestSetupWithoutKeyIsDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Settings{ServiceName: "xueba"})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Setup() error = %v, want ErrDisabled", err)
	}
	if shutdown != nil {
		t.Error("Setup() returned a shutdown func while disabled")
	}
}

func TestHeadersDefaultDataset(t *testing.T) {
	h := Settings{ServiceName: "xueba-server", APIKey: "k"}.headers()
	if h["x-honeycomb-team"] != "k" {
		t.Errorf("team header = %q, want k", h["x-honeycomb-team"])
	}
	if h["x-honeycomb-dataset"] != "xueba-server" {
		t.Errorf("dataset header = %q, want xueba-server", h["x-honeycomb-dataset"])
	}
}

func TestOrNoop(t *testing.T) {
	tr := OrNoop(nil)
	_, span := tr.Start(context.Background(), "test")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("no-op tracer produced a valid span context")
	}
}
