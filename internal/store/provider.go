package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const providerColumns = `id, name, family, config, tool_ids, created_at, updated_at`

// scanProvider scans one provider row.
func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Family, &p.Config, &p.ToolIDs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProvider inserts a new provider record.
// Returns ErrDuplicateName when the name is already taken.
func (s *Store) CreateProvider(ctx context.Context, arg CreateProviderParams) (*Provider, error) {
	toolIDs := arg.ToolIDs
	if toolIDs == nil {
		toolIDs = []string{}
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO providers (name, family, config, tool_ids)
		VALUES ($1, $2, $3, $4)
		RETURNING `+providerColumns,
		arg.Name, arg.Family, arg.Config, toolIDs)

	p, err := scanProvider(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, arg.Name)
		}
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	s.logger.Debug("provider created", "id", p.ID, "name", p.Name, "family", p.Family)
	return p, nil
}

// GetProvider returns the provider with the given id, or ErrNotFound.
func (s *Store) GetProvider(ctx context.Context, id int64) (*Provider, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)

	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: provider %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting provider %d: %w", id, err)
	}
	return p, nil
}

// ListProviders returns all providers ordered by id.
func (s *Store) ListProviders(ctx context.Context) ([]Provider, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+providerColumns+` FROM providers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	defer rows.Close()

	providers := []Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning provider: %w", err)
		}
		providers = append(providers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}
	return providers, nil
}

// UpdateProvider merge-patches the provider record; nil params leave the
// corresponding column unchanged. Returns the updated record.
func (s *Store) UpdateProvider(ctx context.Context, id int64, arg UpdateProviderParams) (*Provider, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE providers
		SET name       = COALESCE($2, name),
		    family     = COALESCE($3, family),
		    config     = COALESCE($4, config),
		    tool_ids   = COALESCE($5, tool_ids),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+providerColumns,
		id, arg.Name, arg.Family, arg.Config, arg.ToolIDs)

	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: provider %d", ErrNotFound, id)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: provider %d", ErrDuplicateName, id)
		}
		return nil, fmt.Errorf("updating provider %d: %w", id, err)
	}

	s.logger.Debug("provider updated", "id", p.ID)
	return p, nil
}

// DeleteProvider removes the provider and, via the foreign-key cascade, its
// chat history. Returns ErrNotFound if no row was deleted.
func (s *Store) DeleteProvider(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting provider %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: provider %d", ErrNotFound, id)
	}

	s.logger.Debug("provider deleted", "id", id)
	return nil
}
