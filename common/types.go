package common

// UserRef identifies a wiki user by id and current username
type UserRef struct {
	ID   int64
	Name string
}

// TopicRef points at the discussion topic backing a sanction, owned by the
// discussion service
type TopicRef struct {
	TopicID   string
	TopicPage string
}

// SystemActor is the fixed bot identity all enforcement and discussion
// writes are performed as. Constructed once at startup and injected.
type SystemActor struct {
	ID   int64
	Name string
}
