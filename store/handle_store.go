package store

import (
	"github.com/Luismorlan/postwall/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func (tx *Tx) ListActiveHandles() ([]model.Handle, error) {
	var handles []model.Handle
	if err := tx.db.Where("is_active = ?", true).Order("id").Find(&handles).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list active handles")
	}
	return handles, nil
}

func (tx *Tx) ListHandles() ([]model.Handle, error) {
	var handles []model.Handle
	if err := tx.db.Order("id").Find(&handles).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list handles")
	}
	return handles, nil
}

func (tx *Tx) FindHandle(id uint64) (*model.Handle, error) {
	var handle model.Handle
	err := tx.db.Where("id = ?", id).First(&handle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHandleNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fail to find handle %d", id)
	}
	return &handle, nil
}

func (tx *Tx) handleNameTaken(name string, exceptId uint64) (bool, error) {
	var count int64
	err := tx.db.Model(&model.Handle{}).Where("handle = ? AND id <> ?", name, exceptId).Count(&count).Error
	if err != nil {
		return false, errors.Wrapf(err, "fail to check handle %s", name)
	}
	return count > 0, nil
}

func (tx *Tx) CreateHandle(handle *model.Handle) error {
	taken, err := tx.handleNameTaken(handle.Handle, 0)
	if err != nil {
		return err
	}
	if taken {
		return ErrHandleExists
	}
	err = tx.db.Create(handle).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrHandleExists
	}
	return errors.Wrapf(err, "fail to create handle %s", handle.Handle)
}

// SaveHandle persists changes to an existing handle.
func (tx *Tx) SaveHandle(handle *model.Handle) error {
	taken, err := tx.handleNameTaken(handle.Handle, handle.Id)
	if err != nil {
		return err
	}
	if taken {
		return ErrHandleExists
	}
	err = tx.db.Model(handle).Select("handle", "is_active", "updated_at").Updates(handle).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrHandleExists
	}
	return errors.Wrapf(err, "fail to update handle %d", handle.Id)
}

func (tx *Tx) DeleteHandle(id uint64) error {
	res := tx.db.Delete(&model.Handle{}, id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "fail to delete handle %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrHandleNotFound
	}
	return nil
}
