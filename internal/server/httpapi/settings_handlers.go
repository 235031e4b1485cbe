package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/models"
	"github.com/gin-gonic/gin"
)

type settingResponse struct {
	Category  string    `json:"category"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Encrypted bool      `json:"encrypted"`
	UpdatedAt time.Time `json:"updated_at"`
}

type putSettingRequest struct {
	Value     string `json:"value"`
	Encrypted bool   `json:"encrypted"`
}

// settingAAD binds a sealed value to its owner and slot so it cannot be
// copied to another user or key.
func settingAAD(userID int64, category, key string) string {
	return fmt.Sprintf("%d/%s/%s", userID, category, key)
}

func (a *api) unseal(s *models.UserSetting) (settingResponse, error) {
	out := settingResponse{Category: s.Category, Key: s.Key, Value: s.Value, Encrypted: s.Encrypted, UpdatedAt: s.UpdatedAt}
	if !s.Encrypted {
		return out, nil
	}
	v, err := a.sealer.Open(s.Value, settingAAD(s.UserID, s.Category, s.Key))
	if err != nil {
		return out, fmt.Errorf("%w: setting %s/%s: %v", common.ErrorInternal, s.Category, s.Key, err)
	}
	out.Value = v
	return out, nil
}

func (a *api) listSettings(c *gin.Context) {
	list, err := a.svc.Settings.GetAll(c.Request.Context(), session(c).UserID, c.Query("category"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]settingResponse, 0, len(list))
	for i := range list {
		s, err := a.unseal(&list[i])
		if err != nil {
			a.writeError(c, err)
			return
		}
		out = append(out, s)
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

func (a *api) getSetting(c *gin.Context) {
	s, err := a.svc.Settings.Get(c.Request.Context(), session(c).UserID, c.Param("category"), c.Param("key"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	out, err := a.unseal(s)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) putSetting(c *gin.Context) {
	var body putSettingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid json")
		return
	}
	uid := session(c).UserID
	category, key := c.Param("category"), c.Param("key")

	value := body.Value
	if body.Encrypted {
		value = a.sealer.Seal(value, settingAAD(uid, category, key))
	}
	if err := a.svc.Settings.Set(c.Request.Context(), uid, category, key, value, body.Encrypted); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) deleteSetting(c *gin.Context) {
	ok, err := a.svc.Settings.Delete(c.Request.Context(), session(c).UserID, c.Param("category"), c.Param("key"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": ok})
}

func (a *api) deleteAllSettings(c *gin.Context) {
	n, err := a.svc.Settings.DeleteAll(c.Request.Context(), session(c).UserID, c.Query("category"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
