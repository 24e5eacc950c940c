package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmehdipour/prompt-vault/internal/model"
	"github.com/jmoiron/sqlx"
)

// PromptsRepository persists prompts. Every method is scoped to the owner identity:
// a row owned by someone else behaves exactly like a row that does not exist.
type PromptsRepository interface {
	List(ctx context.Context, owner string) ([]model.Prompt, error)
	Create(ctx context.Context, owner string, in model.PromptInput) (model.Prompt, error)
	Update(ctx context.Context, owner string, id int64, in model.PromptInput) (model.Prompt, error)
	Delete(ctx context.Context, owner string, id int64) (model.Prompt, error)
}

type PromptsRepositoryImpl struct {
	db *sqlx.DB
}

func NewPromptsRepository(db *sqlx.DB) *PromptsRepositoryImpl {
	return &PromptsRepositoryImpl{db: db}
}

var _ PromptsRepository = (*PromptsRepositoryImpl)(nil)

const promptColumns = `id, user_id, name, description, content, created_at, updated_at`

// List returns the owner's prompts, newest first.
func (r *PromptsRepositoryImpl) List(ctx context.Context, owner string) ([]model.Prompt, error) {
	rows := make([]model.Prompt, 0)
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+promptColumns+`
		  FROM prompts
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
	`, owner); err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return rows, nil
}

func (r *PromptsRepositoryImpl) Create(ctx context.Context, owner string, in model.PromptInput) (model.Prompt, error) {
	ts := now()
	p := model.Prompt{
		Owner:       owner,
		Name:        in.Name,
		Description: in.Description,
		Content:     in.Content,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO prompts (user_id, name, description, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Owner, p.Name, p.Description, p.Content, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return model.Prompt{}, fmt.Errorf("create prompt: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return model.Prompt{}, fmt.Errorf("create prompt: last insert id: %w", err)
	}
	return p, nil
}

func (r *PromptsRepositoryImpl) Update(ctx context.Context, owner string, id int64, in model.PromptInput) (model.Prompt, error) {
	var out model.Prompt
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		p, err := getOwnedPrompt(ctx, tx, owner, id)
		if err != nil {
			return err
		}

		p.Name = in.Name
		p.Description = in.Description
		p.Content = in.Content
		p.UpdatedAt = now()

		if _, err := tx.ExecContext(ctx, `
			UPDATE prompts
			   SET name = ?, description = ?, content = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?
		`, p.Name, p.Description, p.Content, p.UpdatedAt, id, owner); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Prompt{}, fmt.Errorf("update prompt %d: %w", id, err)
	}
	return out, nil
}

// Delete removes the prompt and returns the row as it was before deletion.
func (r *PromptsRepositoryImpl) Delete(ctx context.Context, owner string, id int64) (model.Prompt, error) {
	var out model.Prompt
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		p, err := getOwnedPrompt(ctx, tx, owner, id)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM prompts WHERE id = ? AND user_id = ?`, id, owner)
		if err != nil {
			return err
		}
		// a concurrent delete may have won between the read and this statement
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Prompt{}, fmt.Errorf("delete prompt %d: %w", id, err)
	}
	return out, nil
}

func getOwnedPrompt(ctx context.Context, tx *sqlx.Tx, owner string, id int64) (model.Prompt, error) {
	var p model.Prompt
	err := tx.GetContext(ctx, &p, `
		SELECT `+promptColumns+`
		  FROM prompts
		 WHERE id = ? AND user_id = ?
	`, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Prompt{}, ErrNotFound
	}
	return p, err
}
