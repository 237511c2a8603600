package shared

import (
	"context"
	"testing"
)

func TestOpenSource(t *testing.T) {
	cfg := Config{ReviewSource: "http", ReviewsAPIURL: "http://localhost:8000/api", FetchRPS: 5}
	src, closeFn, err := OpenSource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("http source: %v", err)
	}
	defer closeFn()
	if src.Name() != "reviews-api" {
		t.Fatalf("unexpected source %s", src.Name())
	}

	if _, _, err := OpenSource(context.Background(), Config{ReviewSource: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}
