package mcp

import (
	"context"
	"errors"
	"sync"

	"go-agentcommerce/utils"
)

var ErrNoSession = errors.New("unknown session")

// session is one SSE client. Responses to its POSTed messages are queued
// on out and written by the stream handler.
type session struct {
	id   string
	out  chan []byte
	done chan struct{}
}

type sessions struct {
	mu sync.Mutex
	m  map[string]*session
}

func newSessions() *sessions {
	return &sessions{m: make(map[string]*session)}
}

func (s *sessions) open() *session {
	sess := &session{
		id:   utils.GenerateUUID(),
		out:  make(chan []byte, 16),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.m[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessions) close(id string) {
	s.mu.Lock()
	sess, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if ok {
		close(sess.done)
	}
}

func (s *sessions) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	return sess, ok
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// send queues msg for the session, waiting while its buffer is full.
func (sess *session) send(ctx context.Context, msg []byte) error {
	select {
	case sess.out <- msg:
		return nil
	case <-sess.done:
		return ErrNoSession
	case <-ctx.Done():
		return ctx.Err()
	}
}
