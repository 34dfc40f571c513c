package mailbox

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// MemoryRepository keeps queues in a map. A queue exists only while it
// holds at least one message.
type MemoryRepository struct {
	mu     sync.Mutex
	queues map[string][]models.Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{queues: make(map[string][]models.Message)}
}

func (r *MemoryRepository) Append(_ context.Context, recipientID string, msg models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[recipientID] = append(r.queues[recipientID], msg)
	return nil
}

func (r *MemoryRepository) Peek(_ context.Context, recipientID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message{}, r.queues[recipientID]...), nil
}

func (r *MemoryRepository) Ack(_ context.Context, recipientID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.queues[recipientID]
	for i, m := range q {
		if m.ID != messageID {
			continue
		}
		q = append(q[:i:i], q[i+1:]...)
		if len(q) == 0 {
			delete(r.queues, recipientID)
		} else {
			r.queues[recipientID] = q
		}
		return nil
	}
	return nil
}

func (r *MemoryRepository) Count(_ context.Context, recipientID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues[recipientID]), nil
}

func (r *MemoryRepository) Total(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, q := range r.queues {
		total += len(q)
	}
	return total, nil
}

func (r *MemoryRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues = make(map[string][]models.Message)
	return nil
}

// Queues reports how many recipients currently have a queue.
func (r *MemoryRepository) Queues() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}
