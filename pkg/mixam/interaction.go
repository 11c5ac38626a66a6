package mixam

import "time"

const (
	OpSubmitOrder  = "submit_order"
	OpConfirmOrder = "confirm_order"
	OpCancelOrder  = "cancel_order"
	OpGetStatus    = "get_order_status"
	opAuthenticate = "authenticate"

	responseSnippetLimit = 512
)

// Interaction describes one HTTP exchange with the broker. It is produced for
// every call, including calls that fail before a response arrives.
type Interaction struct {
	Operation       string
	Method          string
	Path            string
	RequestSummary  string
	HTTPStatus      int
	ResponseSnippet string
	Error           string
	StartedAt       time.Time
	Duration        time.Duration
}

func snippet(body []byte) string {
	if len(body) > responseSnippetLimit {
		return string(body[:responseSnippetLimit])
	}
	return string(body)
}
