package server

import "net"

// SemaphoreListener wraps a net.Listener with a counting semaphore: Accept
// blocks until a permit is available, acquiring one before it returns a
// connection. Release gives a permit back, normally once the connection's
// handler goroutine exits. This is the idiomatic Go rendition of the
// counting semaphore spec.md's accept loop requires — a buffered channel
// used purely for its capacity, never for the values sent through it.
type SemaphoreListener struct {
	net.Listener
	permits chan struct{}
}

// NewSemaphoreListener wraps l with a semaphore of size max.
func NewSemaphoreListener(l net.Listener, max int) *SemaphoreListener {
	return &SemaphoreListener{Listener: l, permits: make(chan struct{}, max)}
}

// Accept acquires one permit, then accepts. If the underlying Accept fails,
// the permit is released immediately since no handler will claim it.
func (s *SemaphoreListener) Accept() (net.Conn, error) {
	s.permits <- struct{}{}
	conn, err := s.Listener.Accept()
	if err != nil {
		<-s.permits
		return nil, err
	}
	return conn, nil
}

// Release returns one permit. Callers must call this exactly once per
// successful Accept, when the connection's handler is done with it.
func (s *SemaphoreListener) Release() {
	<-s.permits
}
