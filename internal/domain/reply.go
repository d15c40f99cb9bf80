package domain

// ReplyStatus is the outcome carried by every mutation reply.
type ReplyStatus string

const (
	ReplyDone   ReplyStatus = "DONE"
	ReplyFailed ReplyStatus = "FAILED"
)

// Reply is the uniform result of a mutation. DONE is the only success sentinel.
type Reply struct {
	Status  ReplyStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Done builds a successful reply.
func Done(msg string) Reply {
	return Reply{Status: ReplyDone, Message: msg}
}

// Failed builds a failed reply.
func Failed(msg string) Reply {
	return Reply{Status: ReplyFailed, Message: msg}
}
