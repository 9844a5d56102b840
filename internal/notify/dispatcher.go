// Package notify composes order emails and hands them to a transport.
package notify

import "context"

// Message is one email. Kind labels it for metrics and logs.
type Message struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

const (
	KindOrderConfirmation = "order_confirmation"
	KindReviewRequest     = "review_request"
)

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
