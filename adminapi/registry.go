package adminapi

import (
	"slices"
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/samber/lo"
)

// CodeQueueNotFound is returned for a queue name nobody registered.
const CodeQueueNotFound = "QUEUE_NOT_FOUND"

// Registry maps queue names to queues. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	queues map[string]*docqueue.Queue
}

// NewRegistry returns a registry holding queues.
func NewRegistry(queues ...*docqueue.Queue) *Registry {
	r := &Registry{queues: make(map[string]*docqueue.Queue, len(queues))}
	for _, q := range queues {
		r.Register(q)
	}
	return r
}

// Register adds q under its name, replacing any queue of the same name.
func (r *Registry) Register(q *docqueue.Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[q.Name()] = q
}

// Lookup returns the queue registered under name.
func (r *Registry) Lookup(name string) (*docqueue.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.queues[name]
	if !ok {
		return nil, errx.New("[adminapi]: queue not found",
			errx.WithCode(CodeQueueNotFound),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"queue": name}),
		)
	}
	return q, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.queues)
	slices.Sort(names)
	return names
}
