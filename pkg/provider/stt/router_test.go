package stt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/babelroom/babelroom/pkg/provider/stt"
	sttmock "github.com/babelroom/babelroom/pkg/provider/stt/mock"
)

func TestRouterRoutesByLanguage(t *testing.T) {
	korean := &sttmock.Transcriber{Result: stt.Result{Text: "안녕하세요", Confidence: 0.9}}
	english := &sttmock.Transcriber{Result: stt.Result{Text: "hello", Confidence: 0.8}}
	router := stt.NewRouter(map[string]stt.Transcriber{"ko": korean, "en": english}, nil)

	res, err := router.Transcribe(context.Background(), []byte{0, 0}, "ko")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "안녕하세요" {
		t.Errorf("text = %q, want 안녕하세요", res.Text)
	}
	if korean.CallCount() != 1 || english.CallCount() != 0 {
		t.Errorf("calls = ko:%d en:%d, want ko:1 en:0", korean.CallCount(), english.CallCount())
	}
	if korean.Calls[0].Language != "ko" {
		t.Errorf("language passed through = %q, want ko", korean.Calls[0].Language)
	}
}

func TestRouterFallback(t *testing.T) {
	korean := &sttmock.Transcriber{}
	fallback := &sttmock.Transcriber{Result: stt.Result{Text: "bonjour"}}
	router := stt.NewRouter(map[string]stt.Transcriber{"ko": korean}, fallback)

	res, err := router.Transcribe(context.Background(), []byte{0, 0}, "fr")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "bonjour" {
		t.Errorf("text = %q, want bonjour", res.Text)
	}
	if fallback.Calls[0].Language != "fr" {
		t.Errorf("fallback saw language %q, want fr", fallback.Calls[0].Language)
	}
}

func TestRouterNoBackend(t *testing.T) {
	router := stt.NewRouter(map[string]stt.Transcriber{"ko": &sttmock.Transcriber{}}, nil)

	_, err := router.Transcribe(context.Background(), []byte{0, 0}, "fr")
	if err == nil {
		t.Fatal("want error for unmapped language without fallback")
	}
}

func TestRouterClosesSharedBackendOnce(t *testing.T) {
	shared := &sttmock.Transcriber{}
	korean := &sttmock.Transcriber{}
	router := stt.NewRouter(map[string]stt.Transcriber{
		"ko": korean,
		"en": shared,
		"ja": shared,
	}, shared)

	if err := router.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if shared.CloseCount() != 1 {
		t.Errorf("shared CloseCount = %d, want 1", shared.CloseCount())
	}
	if korean.CloseCount() != 1 {
		t.Errorf("korean CloseCount = %d, want 1", korean.CloseCount())
	}
}

func TestRouterCloseJoinsErrors(t *testing.T) {
	bad := &sttmock.Transcriber{CloseError: errors.New("release failed")}
	router := stt.NewRouter(map[string]stt.Transcriber{"ko": bad}, nil)

	if err := router.Close(); err == nil {
		t.Fatal("want close error surfaced")
	}
}

func TestRouterWarmupHitsEachBackendOnce(t *testing.T) {
	shared := &sttmock.Transcriber{}
	korean := &sttmock.Transcriber{}
	router := stt.NewRouter(map[string]stt.Transcriber{
		"ko": korean,
		"en": shared,
		"ja": shared,
	}, nil)

	if err := router.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup: %v", err)
	}
	if korean.CallCount() != 1 {
		t.Errorf("korean warmup calls = %d, want 1", korean.CallCount())
	}
	if shared.CallCount() != 1 {
		t.Errorf("shared warmup calls = %d, want 1", shared.CallCount())
	}
	if len(korean.Calls[0].PCM) == 0 {
		t.Error("warmup sent empty audio")
	}
}

func TestRouterWarmupError(t *testing.T) {
	bad := &sttmock.Transcriber{Err: errors.New("model not loaded")}
	router := stt.NewRouter(nil, bad)

	if err := router.Warmup(context.Background()); err == nil {
		t.Fatal("want warmup error surfaced")
	}
}
