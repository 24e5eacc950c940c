package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmehdipour/prompt-vault/internal/repository"
)

type Prompts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Prompt
}

func NewPrompts() *Prompts {
	return &Prompts{rows: make(map[int64]model.Prompt)}
}

var _ repository.PromptsRepository = (*Prompts)(nil)

func (s *Prompts) List(_ context.Context, owner string) ([]model.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Prompt, 0)
	for _, p := range s.rows {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Prompts) Create(_ context.Context, owner string, in model.PromptInput) (model.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ts := time.Now().UTC()
	p := model.Prompt{
		ID:          s.nextID,
		Owner:       owner,
		Name:        in.Name,
		Description: in.Description,
		Content:     in.Content,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	s.rows[p.ID] = p
	return p, nil
}

func (s *Prompts) Update(_ context.Context, owner string, id int64, in model.PromptInput) (model.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.rows[id]
	if !ok || p.Owner != owner {
		return model.Prompt{}, fmt.Errorf("update prompt %d: %w", id, repository.ErrNotFound)
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Content = in.Content
	p.UpdatedAt = time.Now().UTC()
	s.rows[id] = p
	return p, nil
}

func (s *Prompts) Delete(_ context.Context, owner string, id int64) (model.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.rows[id]
	if !ok || p.Owner != owner {
		return model.Prompt{}, fmt.Errorf("delete prompt %d: %w", id, repository.ErrNotFound)
	}
	delete(s.rows, id)
	return p, nil
}
