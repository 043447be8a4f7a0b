package server

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Luismorlan/postwall/collector"
	"github.com/Luismorlan/postwall/model"
	"github.com/Luismorlan/postwall/store"
)

var ErrInvalidHandle = errors.New("handle must not be empty")

// HandleService administers tracked handles. Identifiers are stored trimmed
// and without the leading "@".
type HandleService struct {
	store *store.Store
}

func NewHandleService(s *store.Store) *HandleService {
	return &HandleService{store: s}
}

type HandleUpdate struct {
	Handle   *string `json:"handle"`
	IsActive *bool   `json:"is_active"`
}

func (h *HandleService) List(ctx context.Context) ([]model.Handle, error) {
	var handles []model.Handle
	err := h.store.View(ctx, func(tx *store.Tx) (err error) {
		handles, err = tx.ListHandles()
		return err
	})
	return handles, err
}

func (h *HandleService) Create(ctx context.Context, name string, isActive bool) (*model.Handle, error) {
	name = collector.NormalizeHandle(name)
	if name == "" {
		return nil, ErrInvalidHandle
	}
	handle := &model.Handle{Handle: name, IsActive: isActive}
	err := h.store.Transaction(ctx, func(tx *store.Tx) error {
		return tx.CreateHandle(handle)
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Update applies the non nil fields of update.
func (h *HandleService) Update(ctx context.Context, id uint64, update HandleUpdate) (*model.Handle, error) {
	var handle *model.Handle
	err := h.store.Transaction(ctx, func(tx *store.Tx) (err error) {
		handle, err = tx.FindHandle(id)
		if err != nil {
			return err
		}
		if update.Handle != nil {
			name := collector.NormalizeHandle(*update.Handle)
			if name == "" {
				return ErrInvalidHandle
			}
			handle.Handle = name
		}
		if update.IsActive != nil {
			handle.IsActive = *update.IsActive
		}
		return tx.SaveHandle(handle)
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (h *HandleService) Toggle(ctx context.Context, id uint64) (*model.Handle, error) {
	var handle *model.Handle
	err := h.store.Transaction(ctx, func(tx *store.Tx) (err error) {
		handle, err = tx.FindHandle(id)
		if err != nil {
			return err
		}
		handle.IsActive = !handle.IsActive
		return tx.SaveHandle(handle)
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (h *HandleService) Delete(ctx context.Context, id uint64) error {
	return h.store.Transaction(ctx, func(tx *store.Tx) error {
		return tx.DeleteHandle(id)
	})
}
