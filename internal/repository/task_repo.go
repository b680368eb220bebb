package repository

import (
	"context"
	"errors"

	"taskboard/internal/domain"
	"taskboard/internal/feed"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository is the Postgres-backed task store. Change notifications
// come from the tasks_changed trigger relayed by feed.Listener into broker.
type TaskRepository struct {
	db     *pgxpool.Pool
	broker *feed.Broker
}

func NewTaskRepository(db *pgxpool.Pool, broker *feed.Broker) *TaskRepository {
	return &TaskRepository{db: db, broker: broker}
}

func (r *TaskRepository) ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner, body, is_public, created_at
		FROM tasks
		WHERE owner = $1
		ORDER BY created_at DESC, id DESC
	`, string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) Get(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRow(ctx, `SELECT id, owner, body, is_public, created_at FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, err
}

// Insert assigns the id and stores t. CreatedAt is taken from the caller.
func (r *TaskRepository) Insert(ctx context.Context, t *domain.Task) error {
	id := uuid.NewString()
	_, err := r.db.Exec(ctx, `
		INSERT INTO tasks (id, owner, body, is_public, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, string(t.Owner), t.Body, t.Visibility.IsPublic(), t.CreatedAt)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// Delete removes id if requester owns it. A missing id is not an error;
// a task owned by someone else yields domain.ErrForbidden.
func (r *TaskRepository) Delete(ctx context.Context, requester domain.Identity, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner = $2`, id, string(requester))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var owner string
	err = r.db.QueryRow(ctx, `SELECT owner FROM tasks WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return domain.ErrForbidden
}

func (r *TaskRepository) Watch(ctx context.Context, owner domain.Identity) (*feed.Watch, error) {
	return r.broker.Watch(owner), nil
}

// Ping reports database reachability for health checks.
func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		t        domain.Task
		owner    string
		isPublic bool
	)
	if err := row.Scan(&t.ID, &owner, &t.Body, &isPublic, &t.CreatedAt); err != nil {
		return domain.Task{}, err
	}
	t.Owner = domain.Identity(owner)
	t.Visibility = domain.VisibilityFromBool(isPublic)
	return t, nil
}
