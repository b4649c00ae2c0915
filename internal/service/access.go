package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

func requireCaller(caller *models.Caller) error {
	if caller == nil || caller.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func authorizeSchool(caller *models.Caller, schoolID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.CanAccessSchool(schoolID) {
		return appErrors.Clone(appErrors.ErrForbidden, "school is outside your scope")
	}
	return nil
}

func requireStaff(caller *models.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.Role.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "staff role required")
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
