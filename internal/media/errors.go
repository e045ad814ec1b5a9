package media

import "fmt"

// FetchError indicates the receipt image could not be downloaded or failed
// validation. It is terminal for the current message; the sender gets an
// apology and may resend.
type FetchError struct {
	Reason string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("media fetch failed: %s", e.Reason)
}
