package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"iffy/internal/domain"
	"iffy/internal/infra"
	"iffy/internal/sqlinline"
)

// IffyRepositoryPG implements domain.IffyRepository on PostgreSQL.
type IffyRepositoryPG struct {
	db infra.SQLExecutor
}

func NewIffyRepository(db infra.SQLExecutor) *IffyRepositoryPG {
	return &IffyRepositoryPG{db: db}
}

func (r *IffyRepositoryPG) Create(ctx context.Context, iffy *domain.Iffy) (*domain.Iffy, error) {
	if iffy == nil || iffy.ID == "" {
		return nil, fmt.Errorf("%w: record id is required", domain.ErrPersistence)
	}
	status := iffy.Status
	if status == "" {
		status = domain.IffyStatusProcessing
	}
	var userID string
	if iffy.UserID != nil {
		userID = *iffy.UserID
	}

	row := r.db.QueryRow(ctx, sqlinline.QInsertIffy,
		iffy.ID,
		iffy.Age,
		iffy.IsPerson,
		iffy.Desc,
		iffy.StylePrompt,
		iffy.IsError,
		iffy.GiftName,
		iffy.Brand,
		iffy.GiftImageURL,
		iffy.Commentary,
		iffy.Link,
		iffy.Humor,
		iffy.ProductImageURL,
		iffy.OriginalImageURL,
		userID,
		string(status),
	)
	saved, err := scanIffy(row)
	if err != nil {
		return nil, fmt.Errorf("%w: insert iffy: %v", domain.ErrPersistence, err)
	}
	return saved, nil
}

func (r *IffyRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Iffy, error) {
	iffy, err := scanIffy(r.db.QueryRow(ctx, sqlinline.QSelectIffyByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return iffy, nil
}

// Update moves a processing record forward. The statement itself only matches
// processing rows; when it matches nothing the current status decides between
// ErrNotFound and ErrInvalidTransition.
func (r *IffyRepositoryPG) Update(ctx context.Context, id string, upd domain.IffyUpdate) (*domain.Iffy, error) {
	if !domain.IffyStatusProcessing.CanTransition(upd.Status) {
		return nil, fmt.Errorf("%w: unknown target status %q", domain.ErrInvalidTransition, upd.Status)
	}
	row := r.db.QueryRow(ctx, sqlinline.QUpdateIffyFromProcessing,
		id,
		string(upd.Status),
		upd.GiftImageURL,
		upd.Commentary,
		upd.IsError,
	)
	iffy, err := scanIffy(row)
	if err == nil {
		return iffy, nil
	}
	if !infra.IsNoRows(err) {
		return nil, fmt.Errorf("%w: update iffy: %v", domain.ErrPersistence, err)
	}

	var current string
	if err := r.db.QueryRow(ctx, sqlinline.QSelectIffyStatus, id).Scan(&current); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: read status: %v", domain.ErrPersistence, err)
	}
	return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, upd.Status)
}

func (r *IffyRepositoryPG) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, sqlinline.QCountIffy).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanIffy(row pgx.Row) (*domain.Iffy, error) {
	var (
		it     domain.Iffy
		status string
	)
	err := row.Scan(
		&it.ID,
		&it.Age,
		&it.IsPerson,
		&it.Desc,
		&it.StylePrompt,
		&it.IsError,
		&it.GiftName,
		&it.Brand,
		&it.GiftImageURL,
		&it.Commentary,
		&it.Link,
		&it.Humor,
		&it.ProductImageURL,
		&it.OriginalImageURL,
		&it.UserID,
		&it.CreatedAt,
		&it.UpdatedAt,
		&status,
	)
	if err != nil {
		return nil, err
	}
	it.Status = domain.IffyStatus(status)
	return &it, nil
}

var _ domain.IffyRepository = (*IffyRepositoryPG)(nil)
