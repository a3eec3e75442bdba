package model

import "time"

// Query represents one inbound natural-language request. Values are
// created once per request and never mutated.
type Query struct {
	ReceivedAt time.Time
	RawText    string
	UserID     string
}
