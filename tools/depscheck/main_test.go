package main

import (
	"strings"
	"testing"
)

func TestCheckFlagsTransportInCorePackages(t *testing.T) {
	input := `
{"ImportPath": "github.com/gglang/the-voices-sub000/internal/sim", "Imports": ["context", "net/http"]}
{"ImportPath": "github.com/gglang/the-voices-sub000/internal/net/ws", "Imports": ["github.com/gorilla/websocket"]}
{"ImportPath": "github.com/gglang/the-voices-sub000/internal/ai", "Imports": ["github.com/gglang/the-voices-sub000/internal/net/proto"]}
{"ImportPath": "github.com/gglang/the-voices-sub000/internal/world", "Imports": ["net/url", "math"]}
`
	violations, err := check(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", violations)
	}
	if violations[0] != "github.com/gglang/the-voices-sub000/internal/ai -> github.com/gglang/the-voices-sub000/internal/net/proto" {
		t.Fatalf("unexpected first violation %q", violations[0])
	}
	if violations[1] != "github.com/gglang/the-voices-sub000/internal/sim -> net/http" {
		t.Fatalf("unexpected second violation %q", violations[1])
	}
}

func TestCheckRejectsMalformedInput(t *testing.T) {
	if _, err := check(strings.NewReader("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
