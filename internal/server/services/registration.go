package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/photocaption/internal/common"
	"github.com/dmitrijs2005/photocaption/internal/server/repositories/syssettings"
)

// registrationOpen reads the stored registration_open flag, falling back to
// def when no admin has set it.
func registrationOpen(ctx context.Context, repo syssettings.Repository, def bool) (bool, error) {
	v, err := repo.Get(ctx, common.SettingRegistrationOpen)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return def, nil
		}
		return false, err
	}
	open, err := strconv.ParseBool(v)
	if err != nil {
		return def, nil
	}
	return open, nil
}
