package realtime

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

// Audiences a client may declare.
const (
	AudienceOffice  = "office"
	AudienceTeacher = "teacher"
	AudienceParent  = "parent"
)

var subscribeValidator = validator.New()

// Authorize checks that the caller plausibly belongs to the declared audience
// and returns the topics to join. Every subscriber also joins the school topic.
func Authorize(caller models.Caller, msg dto.SubscribeMessage) ([]Topic, error) {
	msg.Role = strings.ToLower(strings.TrimSpace(msg.Role))
	if err := subscribeValidator.Struct(msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscribe message")
	}
	if !caller.CanAccessSchool(msg.SchoolID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "school not accessible")
	}

	school := SchoolTopic{SchoolID: msg.SchoolID}
	switch msg.Role {
	case AudienceOffice:
		if !caller.Role.IsStaff() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "office audience requires staff role")
		}
		return []Topic{OfficeTopic{SchoolID: msg.SchoolID}, school}, nil
	case AudienceTeacher:
		if caller.Role != models.RoleTeacher && !caller.Role.IsStaff() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher audience requires teacher role")
		}
		return []Topic{TeacherTopic{SchoolID: msg.SchoolID, HomeroomID: msg.HomeroomID}, school}, nil
	case AudienceParent:
		if caller.Role != models.RoleParent {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "parent audience requires parent role")
		}
		return []Topic{ParentTopic{SchoolID: msg.SchoolID, GuardianID: caller.UserID}, school}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown audience")
}
