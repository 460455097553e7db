package api

import "fmt"

// TransportError reports that a request never produced an HTTP response:
// the network was unreachable, the connection dropped, or the context was
// cancelled.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RequestError is a non-2xx response. Message carries the server-supplied
// error text when the body contained one.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error: %d", e.Status)
}
