package domain

import "context"

// IffyRepository persists gift job records.
type IffyRepository interface {
	Create(ctx context.Context, iffy *Iffy) (*Iffy, error)
	GetByID(ctx context.Context, id string) (*Iffy, error)
	// Update applies a status transition. Implementations must reject any
	// transition out of a terminal status with ErrInvalidTransition.
	Update(ctx context.Context, id string, upd IffyUpdate) (*Iffy, error)
	Count(ctx context.Context) (int64, error)
}
