package command

// ErrorSink deduplicates error replies within a single command
// invocation: once a handler's ParseParams has reported one error to
// the user, later handlers attempting to report another for the same
// invocation are suppressed. This matches a user seeing exactly one
// error line per command, even when several handlers in a priority
// chain each try to reject the same malformed input.
type ErrorSink struct {
	send     func(numeric, text string)
	reported bool
}

// NewErrorSink wraps send, the function that actually writes a numeric
// reply to the connection.
func NewErrorSink(send func(numeric, text string)) *ErrorSink {
	return &ErrorSink{send: send}
}

// SendSingleError reports numeric/text to the user unless this sink has
// already reported an error for the current invocation.
func (s *ErrorSink) SendSingleError(numeric, text string) {
	if s.reported {
		return
	}
	s.reported = true
	s.send(numeric, text)
}

// Reported reports whether an error has already been sent on this sink.
func (s *ErrorSink) Reported() bool {
	return s.reported
}
