package protocol

import "errors"

var (
	ErrMalformedFrame  = errors.New("protocol: malformed frame")
	ErrEmptyReply      = errors.New("protocol: empty reply")
	ErrNoAcceptedReply = errors.New("protocol: no accepted reply before deadline")
)
