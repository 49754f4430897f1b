package openai

import "testing"

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o-mini", Config{}); err == nil {
		t.Fatal("expected an error when apiKey is empty")
	}
}

func TestNewRequiresModel(t *testing.T) {
	if _, err := New("sk-test", "", Config{}); err == nil {
		t.Fatal("expected an error when model is empty")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	tr, err := New("sk-test", "gpt-4o-mini", Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.config.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want default 60", tr.config.TimeoutSeconds)
	}
	if tr.config.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want default 2048", tr.config.MaxTokens)
	}
}

func TestNewPreservesExplicitConfig(t *testing.T) {
	tr, err := New("sk-test", "gpt-4o-mini", Config{TimeoutSeconds: 10, MaxTokens: 512})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.config.TimeoutSeconds != 10 {
		t.Errorf("TimeoutSeconds = %d, want 10", tr.config.TimeoutSeconds)
	}
	if tr.config.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", tr.config.MaxTokens)
	}
}
