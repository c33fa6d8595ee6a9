package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/forgecomply/forgecomply360/internal/persistence"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// Clock returns the current time. Services default to UTC wall time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func clockOr(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return func() time.Time { return c().UTC() }
}

func newID() string {
	return uuid.NewString()
}

// lookupErr maps a repository read failure to NOT_FOUND or INTERNAL_ERROR.
func lookupErr(err error, resource, id string) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

// storeErr maps a repository write failure.
func storeErr(err error, resource string) error {
	switch {
	case apperrors.IsNotFound(err):
		return apperrors.NewNotFound(resource, nil)
	case persistence.IsUniqueViolation(err):
		return apperrors.NewConflict(resource+" already exists", nil)
	case persistence.IsForeignKeyViolation(err):
		return apperrors.NewValidationError("referenced record does not exist", map[string]any{"resource": resource})
	}
	return apperrors.NewInternalError(err)
}

func strPtr(v string) *string {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}

// emptyToNil treats blank optional references as absent.
func emptyToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
