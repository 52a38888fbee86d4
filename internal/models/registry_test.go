package models

import "testing"

func TestLookupKnownModel(t *testing.T) {
	t.Parallel()

	m := Lookup("deepseek-chat")
	if m.ID != "deepseek-chat" || m.Provider != ProviderDeepSeek {
		t.Errorf("unexpected config: %+v", m)
	}
	if m.Pricing.Input != 0.28 || m.Pricing.Output != 0.42 {
		t.Errorf("unexpected pricing: %+v", m.Pricing)
	}
}

func TestLookupUnknownFallsBackToDefault(t *testing.T) {
	t.Parallel()

	m := Lookup("nonexistent-model")
	if m.ID != DefaultModelID {
		t.Errorf("expected default %q, got %q", DefaultModelID, m.ID)
	}
	if Lookup("") != Default() {
		t.Error("empty id must resolve to default")
	}
}

func TestKnown(t *testing.T) {
	t.Parallel()

	if !Known("gemini-2.0-flash") {
		t.Error("expected gemini-2.0-flash to be known")
	}
	if Known("made-up") {
		t.Error("expected made-up model to be unknown")
	}
}

func TestDefaultIsInRegistry(t *testing.T) {
	t.Parallel()

	if !Known(DefaultModelID) {
		t.Fatalf("default model %q missing from registry", DefaultModelID)
	}
}
