package model

// Session is the per-query state of a Model: the primary table, the tables
// referenced and joined so far, and the counters of the last execution.
type Session struct {
	// Primary is the key of the table the query is centered on.
	Primary string

	referenced tableSet
	joined     tableSet

	insertID     *int64
	affectedRows *int64
	rowsReturned *int64

	// err is the first builder error recorded in strict mode.
	err error
}

// Referenced returns the tables touched by SELECT or WHERE that are waiting
// to be joined.
func (s *Session) Referenced() []string {
	return s.referenced.list()
}

// Joined returns the tables emitted as FROM or JOIN, the FROM table first.
func (s *Session) Joined() []string {
	return s.joined.list()
}

// IsJoined reports whether table was already emitted as FROM or JOIN.
func (s *Session) IsJoined(table string) bool {
	return s.joined.has(table)
}

// Err returns the deferred builder error, if any.
func (s *Session) Err() error {
	return s.err
}

func (s *Session) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// tableSet is an insertion-ordered set of table keys.
type tableSet struct {
	keys []string
}

func (t *tableSet) add(key string) bool {
	if t.has(key) {
		return false
	}
	t.keys = append(t.keys, key)
	return true
}

func (t *tableSet) has(key string) bool {
	for _, k := range t.keys {
		if k == key {
			return true
		}
	}
	return false
}

func (t *tableSet) list() []string {
	return append([]string(nil), t.keys...)
}

func (t *tableSet) clear() {
	t.keys = nil
}

func (t *tableSet) len() int {
	return len(t.keys)
}

func int64Ptr(n int64) *int64 {
	return &n
}
