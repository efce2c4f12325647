package protocol

import (
	"context"
	"net/http"
	"time"
)

// MailMessage is one transactional email.
type MailMessage struct {
	To          string
	Subject     string
	HTMLBody    string
	FromAddress string
	FromName    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// HTTPRequest describes one outbound call.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	Timeout time.Duration
}

// HTTPResponse is what an outbound call returned.
type HTTPResponse struct {
	Status int
	Body   []byte
}

// HTTPDoer performs outbound HTTP calls.
type HTTPDoer interface {
	Do(ctx context.Context, req HTTPRequest) (*HTTPResponse, error)
}
