package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/dto"
	"github.com/noah-isme/sma-dismissal-api/internal/models"
	appErrors "github.com/noah-isme/sma-dismissal-api/pkg/errors"
)

const (
	checkInEnrolled         = "enrolled"
	checkInAlreadySubmitted = "already_submitted"
	checkInNotFound         = "not_found"
)

type rosterResolver interface {
	GuardianStudents(ctx context.Context, schoolID, guardianID string, dismissalType models.DismissalType) ([]models.Student, error)
	FamilyGroupByCarNumber(ctx context.Context, schoolID, carNumber string) (*models.FamilyGroup, error)
	FamilyGroupStudents(ctx context.Context, groupID string, dismissalType models.DismissalType) ([]models.Student, error)
	GuardianByCarNumber(ctx context.Context, schoolID, carNumber string) (*models.Guardian, error)
	BusStudents(ctx context.Context, schoolID, route string) ([]models.Student, error)
	Walkers(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, error)
}

type sessionOpener interface {
	EnsureToday(ctx context.Context, school *models.School) (*models.Session, error)
}

type schoolGetter interface {
	Get(ctx context.Context, id string) (*models.School, error)
}

type enroller interface {
	Enroll(ctx context.Context, req Enrollment) (*EnrollResult, error)
}

// CheckInService resolves arrivals into queue enrollments.
type CheckInService struct {
	roster    rosterResolver
	schools   schoolGetter
	sessions  sessionOpener
	queue     enroller
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCheckInService constructs the service.
func NewCheckInService(roster rosterResolver, schools schoolGetter, sessions sessionOpener, queue enroller, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CheckInService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInService{
		roster:    roster,
		schools:   schools,
		sessions:  sessions,
		queue:     queue,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// resolution is what a check-in code resolved to.
type resolution struct {
	students     []models.Student
	guardianID   *string
	guardianName string
	method       models.CheckInMethod
	status       models.EntryStatus
}

// AppCheckIn enrolls the calling guardian's car riders.
func (s *CheckInService) AppCheckIn(ctx context.Context, caller *models.Caller, req dto.AppCheckInRequest) (*dto.CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	method := req.Method
	if method == "" {
		method = models.CheckInMethodApp
	}
	return s.checkIn(ctx, caller, req.SchoolID, method, func(ctx context.Context, school *models.School) (*resolution, error) {
		students, err := s.roster.GuardianStudents(ctx, school.ID, caller.UserID, models.DismissalTypeCar)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load guardian students")
		}
		if len(students) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no eligible students for this guardian")
		}
		guardianID := caller.UserID
		return &resolution{students: students, guardianID: &guardianID, guardianName: caller.FullName}, nil
	})
}

// CarCheckIn resolves a car number entered at the curb. No-app schools map
// it to a family group, app schools to a parent membership.
func (s *CheckInService) CarCheckIn(ctx context.Context, caller *models.Caller, req dto.CarCheckInRequest) (*dto.CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid car check-in payload")
	}
	carNumber := strings.TrimSpace(req.CarNumber)
	return s.checkIn(ctx, caller, req.SchoolID, models.CheckInMethodCarNumber, func(ctx context.Context, school *models.School) (*resolution, error) {
		if school.DismissalMode == models.DismissalModeNoApp {
			return s.resolveFamilyGroup(ctx, school.ID, carNumber)
		}
		return s.resolveGuardianCar(ctx, school.ID, carNumber)
	})
}

func (s *CheckInService) resolveFamilyGroup(ctx context.Context, schoolID, carNumber string) (*resolution, error) {
	group, err := s.roster.FamilyGroupByCarNumber(ctx, schoolID, carNumber)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "car number not found")
		}
		return nil, appErrors.Internal(err, "failed to resolve car number")
	}
	students, err := s.roster.FamilyGroupStudents(ctx, group.ID, models.DismissalTypeCar)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load family group students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no eligible students for car number")
	}
	return &resolution{students: students, guardianName: group.Name}, nil
}

func (s *CheckInService) resolveGuardianCar(ctx context.Context, schoolID, carNumber string) (*resolution, error) {
	guardian, err := s.roster.GuardianByCarNumber(ctx, schoolID, carNumber)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "car number not found")
		}
		return nil, appErrors.Internal(err, "failed to resolve car number")
	}
	students, err := s.roster.GuardianStudents(ctx, schoolID, guardian.UserID, models.DismissalTypeCar)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load guardian students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no eligible students for car number")
	}
	guardianID := guardian.UserID
	return &resolution{students: students, guardianID: &guardianID, guardianName: guardian.FullName}, nil
}

// BusCheckIn enrolls every rider of a bus route.
func (s *CheckInService) BusCheckIn(ctx context.Context, caller *models.Caller, req dto.BusCheckInRequest) (*dto.CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bus check-in payload")
	}
	route := strings.TrimSpace(req.BusNumber)
	return s.checkIn(ctx, caller, req.SchoolID, models.CheckInMethodBusNumber, func(ctx context.Context, school *models.School) (*resolution, error) {
		students, err := s.roster.BusStudents(ctx, school.ID, route)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load bus riders")
		}
		if len(students) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bus number not found")
		}
		return &resolution{students: students, guardianName: "Bus #" + route}, nil
	})
}

// ReleaseWalkers records walkers as dismissed without queueing them.
func (s *CheckInService) ReleaseWalkers(ctx context.Context, caller *models.Caller, req dto.WalkerReleaseRequest) (*dto.CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid walker release payload")
	}
	filter := models.StudentFilter{Grade: strings.TrimSpace(req.Grade), HomeroomID: strings.TrimSpace(req.HomeroomID)}
	return s.checkIn(ctx, caller, req.SchoolID, models.CheckInMethodWalker, func(ctx context.Context, school *models.School) (*resolution, error) {
		students, err := s.roster.Walkers(ctx, school.ID, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load walkers")
		}
		return &resolution{
			students:     students,
			guardianName: walkerLabel(filter, students),
			status:       models.EntryStatusDismissed,
		}, nil
	})
}

func walkerLabel(filter models.StudentFilter, students []models.Student) string {
	switch {
	case filter.HomeroomID != "":
		name := filter.HomeroomID
		for _, st := range students {
			if st.HomeroomName != nil && *st.HomeroomName != "" {
				name = *st.HomeroomName
				break
			}
		}
		return "Walkers - " + name
	case filter.Grade != "":
		return fmt.Sprintf("Walkers - Grade %s", filter.Grade)
	}
	return "Walkers"
}

type resolveFunc func(ctx context.Context, school *models.School) (*resolution, error)

func (s *CheckInService) checkIn(ctx context.Context, caller *models.Caller, schoolID string, method models.CheckInMethod, resolve resolveFunc) (*dto.CheckInResult, error) {
	if err := authorizeSchool(caller, schoolID); err != nil {
		return nil, err
	}
	school, err := s.schools.Get(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	res, err := resolve(ctx, school)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			s.metrics.RecordCheckIn(string(method), checkInNotFound)
		}
		return nil, err
	}
	if res.method == "" {
		res.method = method
	}

	session, err := s.sessions.EnsureToday(ctx, school)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.queue.Enroll(ctx, Enrollment{
		Session:      session,
		Students:     res.students,
		GuardianID:   res.guardianID,
		GuardianName: res.guardianName,
		Method:       res.method,
		Status:       res.status,
		Actor:        caller,
	})
	if err != nil {
		return nil, err
	}

	result := &dto.CheckInResult{
		SessionID:    session.ID,
		GuardianName: res.guardianName,
		Entries:      enrolled.Entries,
		Skipped:      enrolled.Skipped,
	}
	outcome := checkInEnrolled
	if len(enrolled.Entries) == 0 && enrolled.Skipped > 0 {
		result.AlreadySubmitted = true
		outcome = checkInAlreadySubmitted
	}
	s.metrics.RecordCheckIn(string(res.method), outcome)
	s.logger.Info("check-in processed",
		zap.String("school_id", school.ID),
		zap.String("session_id", session.ID),
		zap.String("method", string(res.method)),
		zap.Int("enrolled", len(enrolled.Entries)),
		zap.Int("skipped", enrolled.Skipped),
	)
	return result, nil
}
