package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

type changeRequestStore interface {
	Create(ctx context.Context, req *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	Resolve(ctx context.Context, id string, status models.ChangeRequestStatus, reviewerID string, at time.Time) (*models.ChangeRequest, error)
}

type studentRoster interface {
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	IsGuardianOf(ctx context.Context, guardianID, studentID string) (bool, error)
}

// ChangeRequestService handles parent requests to change a student's
// dismissal type and their review by office staff.
type ChangeRequestService struct {
	repo        changeRequestStore
	roster      studentRoster
	schools     schoolGetter
	sessions    sessionOpener
	broadcaster *Broadcaster
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewChangeRequestService constructs the service.
func NewChangeRequestService(repo changeRequestStore, roster studentRoster, schools schoolGetter, sessions sessionOpener, broadcaster *Broadcaster, validate *validator.Validate, logger *zap.Logger) *ChangeRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeRequestService{
		repo:        repo,
		roster:      roster,
		schools:     schools,
		sessions:    sessions,
		broadcaster: broadcaster,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit files a request for today's session on behalf of a guardian.
func (s *ChangeRequestService) Submit(ctx context.Context, caller *models.Caller, req dto.SubmitChangeRequest) (*models.ChangeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if caller.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only guardians can request changes")
	}

	student, err := s.roster.GetStudent(ctx, req.StudentID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if err := authorizeSchool(caller, student.SchoolID); err != nil {
		return nil, err
	}
	linked, err := s.roster.IsGuardianOf(ctx, caller.UserID, student.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to verify guardianship")
	}
	if !linked {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a guardian of this student")
	}

	busRoute := strPtr(strings.TrimSpace(req.BusRoute))
	if req.ToType != models.DismissalTypeBus {
		busRoute = nil
	}
	if req.ToType == student.DismissalType && (req.ToType != models.DismissalTypeBus || sameRoute(student.BusRoute, busRoute)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student already has this dismissal type")
	}

	school, err := s.schools.Get(ctx, student.SchoolID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.EnsureToday(ctx, school)
	if err != nil {
		return nil, err
	}

	request := &models.ChangeRequest{
		SessionID:   session.ID,
		SchoolID:    student.SchoolID,
		StudentID:   student.ID,
		RequesterID: caller.UserID,
		FromType:    student.DismissalType,
		ToType:      req.ToType,
		BusRoute:    busRoute,
		Note:        strPtr(strings.TrimSpace(req.Note)),
		Status:      models.ChangeRequestPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Internal(err, "failed to create change request")
	}
	s.broadcaster.ChangeRequestChanged(realtime.EventChangeRequestSubmitted, *request)
	return request, nil
}

func sameRoute(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// List returns a parent's own requests, or a school's requests for staff.
func (s *ChangeRequestService) List(ctx context.Context, caller *models.Caller, query dto.ChangeRequestQuery) ([]models.ChangeRequest, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request filter")
	}
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	filter := models.ChangeRequestFilter{SessionID: query.SessionID}
	if query.Status != "" {
		status := models.ChangeRequestStatus(query.Status)
		filter.Status = &status
	}

	switch {
	case caller.Role == models.RoleParent:
		filter.RequesterID = caller.UserID
		filter.SchoolID = caller.SchoolID
	case caller.IsSuperAdmin():
		filter.SchoolID = query.SchoolID
	case caller.Role.IsStaff():
		filter.SchoolID = caller.SchoolID
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list change requests")
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list change requests")
	}
	return requests, nil
}

// Resolve approves or denies a pending request. Approval updates the
// student's roster dismissal type atomically with the decision.
func (s *ChangeRequestService) Resolve(ctx context.Context, caller *models.Caller, id string, req dto.ResolveChangeRequest) (*models.ChangeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision")
	}
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, appErrors.Internal(err, "failed to load change request")
	}
	if err := authorizeSchool(caller, current.SchoolID); err != nil {
		return nil, err
	}
	if current.Status != models.ChangeRequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "change request already resolved")
	}

	resolved, err := s.repo.Resolve(ctx, current.ID, req.Decision, caller.UserID, s.now().UTC())
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "change request already resolved")
		}
		return nil, appErrors.Internal(err, "failed to resolve change request")
	}

	s.logger.Info("change request resolved",
		zap.String("id", resolved.ID),
		zap.String("decision", string(resolved.Status)),
		zap.String("reviewer_id", caller.UserID),
	)
	s.broadcaster.ChangeRequestChanged(realtime.EventChangeRequestResolved, *resolved)
	return resolved, nil
}
