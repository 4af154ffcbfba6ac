package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"booktracker/internal/database/settings"
	"booktracker/internal/entities"
)

// SettingsStore is the settings surface the settings controller needs.
type SettingsStore interface {
	All() (map[string]string, error)
	SetSetting(key, value string) error
	SetWIPLimit(limit int) error
}

type SettingsController struct {
	store SettingsStore
}

func NewSettingsController(store SettingsStore) *SettingsController {
	return &SettingsController{store: store}
}

// GetSettings returns every setting with the WIP limit defaulted.
func (controller *SettingsController) GetSettings(c *gin.Context) {
	all, err := controller.store.All()
	if err != nil {
		respondStoreError(c, err, "get settings")
		return
	}
	if _, ok := all[entities.SettingKeyWIPLimit]; !ok {
		all[entities.SettingKeyWIPLimit] = strconv.Itoa(entities.DefaultWIPLimit)
	}
	c.JSON(http.StatusOK, all)
}

// UpdateSettings upserts each provided key. The WIP limit goes through its
// validated setter; everything else is stored verbatim.
func (controller *SettingsController) UpdateSettings(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(req) == 0 {
		respondBadRequest(c, "no settings provided")
		return
	}

	for key, value := range req {
		if key == entities.SettingKeyWIPLimit {
			limit, err := strconv.Atoi(value)
			if err != nil {
				respondBadRequest(c, "wip_limit must be a number")
				return
			}
			if err := controller.store.SetWIPLimit(limit); err != nil {
				respondStoreError(c, err, "set wip limit")
				return
			}
			continue
		}
		if err := controller.store.SetSetting(key, value); err != nil {
			respondStoreError(c, err, "set setting")
			return
		}
	}
	controller.GetSettings(c)
}

var _ SettingsStore = (*settings.Repository)(nil)
