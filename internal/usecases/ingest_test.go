package usecases

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestIngestTextOnly(t *testing.T) {
	store := newFakeStore()
	tr := &fakeTranscriber{}
	svc := NewIngestService(store, tr, zerolog.Nop())

	payload := map[string]any{
		"phone": "g1",
		"from":  "5511999",
		"text":  map[string]any{"message": "oi"},
	}
	if err := svc.Process(context.Background(), payload); err != nil {
		t.Fatal(err)
	}

	if tr.calls != 0 {
		t.Errorf("transcriber called %d times for text message", tr.calls)
	}
	if len(store.messages) != 1 {
		t.Fatalf("stored %d messages", len(store.messages))
	}
	if store.messages[0].Text != "oi" {
		t.Errorf("Text = %q", store.messages[0].Text)
	}
}

func TestIngestAudioOnly(t *testing.T) {
	store := newFakeStore()
	tr := &fakeTranscriber{transcript: "hello world"}
	svc := NewIngestService(store, tr, zerolog.Nop())

	payload := map[string]any{
		"phone": "g1",
		"audio": map[string]any{"ptt": true, "audioUrl": "https://x/a.ogg", "mimeType": "audio/ogg"},
	}
	if err := svc.Process(context.Background(), payload); err != nil {
		t.Fatal(err)
	}

	if tr.calls != 1 {
		t.Fatalf("transcriber calls = %d", tr.calls)
	}
	if got := store.messages[0].Text; got != "Áudio transcrito: hello world" {
		t.Errorf("Text = %q", got)
	}
}

func TestIngestAudioWithCaption(t *testing.T) {
	store := newFakeStore()
	tr := &fakeTranscriber{transcript: "fala gravada"}
	svc := NewIngestService(store, tr, zerolog.Nop())

	payload := map[string]any{
		"phone":   "g1",
		"caption": "olha isso",
		"audio":   map[string]any{"audioUrl": "https://x/a.ogg"},
	}
	if err := svc.Process(context.Background(), payload); err != nil {
		t.Fatal(err)
	}

	want := "olha isso\n[Áudio transcrito: fala gravada]"
	if got := store.messages[0].Text; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestIngestTranscriptionFailure(t *testing.T) {
	t.Run("audio only gets placeholder", func(t *testing.T) {
		store := newFakeStore()
		svc := NewIngestService(store, &fakeTranscriber{err: errBoom}, zerolog.Nop())

		payload := map[string]any{
			"phone": "g1",
			"audio": map[string]any{"audioUrl": "https://x/a.ogg"},
		}
		if err := svc.Process(context.Background(), payload); err != nil {
			t.Fatalf("transcription failure must not fail ingestion: %v", err)
		}
		if got := store.messages[0].Text; got != AudioPlaceholder {
			t.Errorf("Text = %q, want placeholder", got)
		}
	})

	t.Run("text survives untouched", func(t *testing.T) {
		store := newFakeStore()
		svc := NewIngestService(store, &fakeTranscriber{err: errBoom}, zerolog.Nop())

		payload := map[string]any{
			"phone":   "g1",
			"caption": "texto original",
			"audio":   map[string]any{"audioUrl": "https://x/a.ogg"},
		}
		if err := svc.Process(context.Background(), payload); err != nil {
			t.Fatal(err)
		}
		if got := store.messages[0].Text; got != "texto original" {
			t.Errorf("Text = %q", got)
		}
	})

	t.Run("empty transcript gets placeholder", func(t *testing.T) {
		store := newFakeStore()
		svc := NewIngestService(store, &fakeTranscriber{transcript: ""}, zerolog.Nop())

		payload := map[string]any{
			"phone": "g1",
			"audio": map[string]any{"audioUrl": "https://x/a.ogg"},
		}
		if err := svc.Process(context.Background(), payload); err != nil {
			t.Fatal(err)
		}
		if got := store.messages[0].Text; got != AudioPlaceholder {
			t.Errorf("Text = %q, want placeholder", got)
		}
	})
}

func TestIngestStoreFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errBoom
	svc := NewIngestService(store, &fakeTranscriber{}, zerolog.Nop())

	err := svc.Process(context.Background(), map[string]any{"body": "oi"})
	if err == nil {
		t.Fatal("expected error from store failure")
	}
	if !strings.Contains(err.Error(), "saving message") {
		t.Errorf("err = %v", err)
	}
}
