package rest

import "sync"

// QueryLog collects backing-store queries issued while serving one request.
// It replaces ambient global query logs: the dispatcher creates one per
// request and threads it through the data source.
type QueryLog struct {
	mu      sync.Mutex
	queries []string
}

func (l *QueryLog) Record(query string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.queries = append(l.queries, query)
	l.mu.Unlock()
}

func (l *QueryLog) Queries() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.queries))
	copy(out, l.queries)
	return out
}

func (l *QueryLog) Count() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queries)
}

func (l *QueryLog) payload() map[string]any {
	queries := l.Queries()
	return map[string]any{
		"query_log":   queries,
		"query_count": len(queries),
	}
}
