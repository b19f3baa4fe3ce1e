package ui

// StatusMsg is sent by views to replace the status line. A non-nil Err is
// shown as an error and takes precedence over Text.
type StatusMsg struct {
	Text string
	Err  error
}
