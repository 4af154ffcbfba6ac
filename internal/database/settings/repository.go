// Package settings provides database operations for user settings.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	limit, err := repo.WIPLimit()
package settings

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"booktracker/internal/apperr"
	"booktracker/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("setting")
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			Key:       key,
			Value:     value,
			UpdatedAt: time.Now(),
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	setting.UpdatedAt = time.Now()
	return r.db.Save(&setting).Error
}

// All returns every setting as a key to value map.
func (r *Repository) All() (map[string]string, error) {
	var rows []entities.Setting
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]string, len(rows))
	for _, row := range rows {
		result[row.Key] = row.Value
	}
	return result, nil
}

// WIPLimit returns the work-in-progress limit, falling back to the default
// when the setting is missing or unparseable.
func (r *Repository) WIPLimit() (int, error) {
	setting, err := r.GetSetting(entities.SettingKeyWIPLimit)
	if errors.Is(err, apperr.ErrNotFound) {
		return entities.DefaultWIPLimit, nil
	}
	if err != nil {
		return 0, err
	}
	limit, err := strconv.Atoi(setting.Value)
	if err != nil || limit < 1 {
		return entities.DefaultWIPLimit, nil
	}
	return limit, nil
}

// SetWIPLimit stores a new work-in-progress limit.
func (r *Repository) SetWIPLimit(limit int) error {
	if limit < 1 {
		return apperr.Validation("wip_limit must be a positive number")
	}
	return r.SetSetting(entities.SettingKeyWIPLimit, strconv.Itoa(limit))
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
