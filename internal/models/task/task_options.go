package task

// Option is a partial update applied to a loaded task. A nil Option is a
// no-op, so constructors may return nil for "leave unchanged".
type Option func(*Task)

func WithDescription(description string) Option {
	return func(t *Task) {
		t.Description = description
	}
}

func WithDuration(minutes int) Option {
	return func(t *Task) {
		t.Duration = minutes
	}
}

func WithStatus(status Status) Option {
	if status == "" {
		return nil
	}
	return func(t *Task) {
		t.Status = status
	}
}

func WithNotes(notes string) Option {
	return func(t *Task) {
		t.Notes = notes
	}
}

// Apply runs every non-nil option against t.
func Apply(t *Task, opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
}
