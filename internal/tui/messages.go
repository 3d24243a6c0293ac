package tui

import "github.com/hpungsan/ctrack/internal/ops"

// markedRead is sent when mark-read and the following re-check finish.
type markedRead struct {
	out *ops.CheckOutput
	err error
}

// flashExpired clears the notification with the same id.
type flashExpired struct {
	id int
}
