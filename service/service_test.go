package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-agentcommerce/logger"
)

func TestStartStopsOnCancel(t *testing.T) {
	logger.Discard()
	ctx, cancel := context.WithCancel(context.Background())
	done := Start(ctx, "127.0.0.1:0", http.NotFoundHandler())

	cancel()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server context not cancelled")
	}
}

func TestStartReportsListenFailure(t *testing.T) {
	logger.Discard()
	done := Start(context.Background(), "127.0.0.1:-1", http.NotFoundHandler())

	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server context not cancelled")
	}
	assert.ErrorIs(t, done.Err(), context.Canceled)
}
