package qualification

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hearth/internal/domain"
	"hearth/internal/metrics"
	"hearth/internal/model"
)

// Event types published by the service.
const (
	EventSubmitted     = "qualification.submitted"
	EventStageAdvanced = "qualification.stage_advanced"
	EventRejected      = "qualification.rejected"
	EventCancelled     = "qualification.cancelled"
)

// Repository provides qualification storage.
type Repository interface {
	GetQualificationRecord(ctx context.Context, id int64) (*model.QualificationRecord, error)
	GetQualificationByRequester(ctx context.Context, requesterID, groupID int64) (*model.QualificationRecord, error)
	CreateQualificationRecord(ctx context.Context, r *model.QualificationRecord) error
	UpdateQualificationRecord(ctx context.Context, r *model.QualificationRecord) error
	GetGroupRequirements(ctx context.Context, groupID int64) (*model.GroupRequirements, error)
	GetDocumentStatuses(ctx context.Context, recordID int64) ([]model.DocumentStatus, error)
	HasLegacyGrant(ctx context.Context, requesterID, groupID int64) (bool, error)
}

// EventBus publishes domain events.
type EventBus interface {
	PublishJSON(eventType string, payload interface{}) error
}

// RateLimiter throttles application submissions per requester.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Status is the full qualification state returned to callers. The
// legacy grant flag is informational only; it never substitutes for the
// stage-2 gate.
type Status struct {
	Record         *model.QualificationRecord `json:"record"`
	BookingEnabled bool                       `json:"booking_enabled"`
	HadLegacyGrant bool                       `json:"had_legacy_grant"`
}

// Service implements the qualification ladder operations.
type Service struct {
	repo        Repository
	bus         EventBus
	limiter     RateLimiter
	submitLimit int
	submitWin   time.Duration
	logger      zerolog.Logger

	// Stage transitions on the same record are serialized.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService creates a qualification service. The limiter is optional.
func NewService(repo Repository, bus EventBus, limiter RateLimiter, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		bus:         bus,
		limiter:     limiter,
		submitLimit: 5,
		submitWin:   time.Hour,
		logger:      logger.With().Str("component", "qualification").Logger(),
		locks:       make(map[int64]*sync.Mutex),
	}
}

func (s *Service) recordLock(recordID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[recordID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[recordID] = l
	}
	return l
}

// SubmitOrReapply creates a qualification record on first application.
// A rejected or cancelled record resets to in_review with cleared
// feedback and fresh stage data; an approved record merges later-stage
// data without touching its status.
func (s *Service) SubmitOrReapply(ctx context.Context, requesterID, groupID int64, data map[string]string) (*model.QualificationRecord, error) {
	if s.limiter != nil {
		key := fmt.Sprintf("qualification:submit:%d", requesterID)
		ok, err := s.limiter.Allow(ctx, key, s.submitLimit, s.submitWin)
		if err != nil {
			s.logger.Warn().Err(err).Msg("rate limiter unavailable, allowing submission")
		} else if !ok {
			return nil, domain.Validationf("too many submissions, try again later")
		}
	}

	record, err := s.repo.GetQualificationByRequester(ctx, requesterID, groupID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	if record == nil {
		record = &model.QualificationRecord{
			RequesterID:  requesterID,
			GroupID:      groupID,
			Status:       model.QualificationInReview,
			CurrentStage: model.StageApplication,
			StageData:    copyData(data),
		}
		if err := s.repo.CreateQualificationRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("create record: %w", err)
		}
		s.publish(EventSubmitted, record)
		s.logger.Info().
			Int64("requester_id", requesterID).
			Int64("group_id", groupID).
			Msg("qualification application created")
		return record, nil
	}

	switch record.Status {
	case model.QualificationRejected, model.QualificationCancelled:
		// Re-application: fresh data, cleared feedback. Stage
		// timestamps are set-once and survive the reset.
		record.Status = model.QualificationInReview
		record.Feedback = ""
		record.StageData = copyData(data)
		record.CurrentStage = firstIncompleteStage(record)
	default:
		// Incremental submission of later-stage data.
		if record.StageData == nil {
			record.StageData = make(map[string]string)
		}
		for k, v := range data {
			record.StageData[k] = v
		}
	}

	if err := s.repo.UpdateQualificationRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	s.publish(EventSubmitted, record)
	s.logger.Info().
		Int64("record_id", record.ID).
		Str("status", record.Status).
		Msg("qualification data submitted")
	return record, nil
}

// AdvanceStage marks targetStage complete for a record. Transitions only
// move forward and each stage stamps its timestamp exactly once:
// re-advancing an already-completed stage is a no-op that preserves the
// original timestamp.
//
// Completing a stage requires CheckRequirements to pass for that stage.
// This is the only code path that sets Stage2CompletedAt, so the booking
// gate can never open without the stage-2 requirements check.
func (s *Service) AdvanceStage(ctx context.Context, recordID int64, targetStage int, reviewerID int64) (*model.QualificationRecord, error) {
	if targetStage < model.StageApplication || targetStage > model.StageLicense {
		return nil, domain.Validationf("invalid stage %d", targetStage)
	}

	lock := s.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.repo.GetQualificationRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status == model.QualificationRejected || record.Status == model.QualificationCancelled {
		return nil, domain.Validationf("record is %s, requester must re-apply", record.Status)
	}

	if record.StageTimestamp(targetStage) != nil {
		// Idempotent: never overwrite the original timestamp.
		return record, nil
	}
	if targetStage > record.CurrentStage {
		return nil, domain.Validationf("stage %d not reached, record is at stage %d", targetStage, record.CurrentStage)
	}

	reqs, err := s.repo.GetGroupRequirements(ctx, record.GroupID)
	if err != nil {
		return nil, fmt.Errorf("load requirements: %w", err)
	}
	docs, err := s.repo.GetDocumentStatuses(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("load document statuses: %w", err)
	}

	result := CheckRequirements(record, docs, reqs, targetStage)
	if !result.Valid {
		return nil, &domain.NotQualifiedError{Missing: result.Missing}
	}

	now := time.Now()
	switch targetStage {
	case model.StageApplication:
		record.Stage1CompletedAt = &now
		record.Status = model.QualificationApproved
	case model.StageDocuments:
		record.Stage2CompletedAt = &now
	case model.StageLicensing:
		record.Stage3SubmittedAt = &now
	case model.StageLicense:
		record.Stage4CompletedAt = &now
		if record.LicenseNumber == "" {
			record.LicenseNumber = record.StageData["license_number"]
		}
	}
	if targetStage == record.CurrentStage && record.CurrentStage < model.StageLicense {
		record.CurrentStage++
	}

	if err := s.repo.UpdateQualificationRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	metrics.IncStageAdvanced(strconv.Itoa(targetStage))
	s.publish(EventStageAdvanced, map[string]interface{}{
		"record_id":   record.ID,
		"stage":       targetStage,
		"reviewer_id": reviewerID,
	})
	s.logger.Info().
		Int64("record_id", record.ID).
		Int("stage", targetStage).
		Int64("reviewer_id", reviewerID).
		Msg("qualification stage advanced")
	return record, nil
}

// Reject marks a record rejected with operator feedback. The requester
// may re-apply, which clears the feedback.
func (s *Service) Reject(ctx context.Context, recordID int64, reviewerID int64, feedback string) error {
	lock := s.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.repo.GetQualificationRecord(ctx, recordID)
	if err != nil {
		return err
	}
	record.Status = model.QualificationRejected
	record.Feedback = feedback
	if err := s.repo.UpdateQualificationRecord(ctx, record); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	s.publish(EventRejected, map[string]interface{}{
		"record_id":   record.ID,
		"reviewer_id": reviewerID,
		"feedback":    feedback,
	})
	s.logger.Info().
		Int64("record_id", record.ID).
		Int64("reviewer_id", reviewerID).
		Msg("qualification rejected")
	return nil
}

// CancelApplication withdraws a record at the requester's request.
func (s *Service) CancelApplication(ctx context.Context, recordID, requesterID int64) error {
	lock := s.recordLock(recordID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.repo.GetQualificationRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if record.RequesterID != requesterID {
		return domain.Validationf("record %d does not belong to requester %d", recordID, requesterID)
	}
	if record.Status == model.QualificationCancelled {
		return nil
	}
	record.Status = model.QualificationCancelled
	if err := s.repo.UpdateQualificationRecord(ctx, record); err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	s.publish(EventCancelled, map[string]interface{}{"record_id": record.ID})
	return nil
}

// CheckBookingGate reports whether the requester may book kitchens of
// the group. On failure it returns the outstanding stage-2 requirements
// so callers can surface them.
func (s *Service) CheckBookingGate(ctx context.Context, requesterID, groupID int64) (bool, []string, error) {
	record, err := s.repo.GetQualificationByRequester(ctx, requesterID, groupID)
	if err != nil {
		return false, nil, fmt.Errorf("load record: %w", err)
	}
	if record == nil {
		return false, []string{"qualification application"}, nil
	}
	if record.BookingUnlocked() {
		return true, nil, nil
	}

	reqs, err := s.repo.GetGroupRequirements(ctx, groupID)
	if err != nil {
		return false, nil, fmt.Errorf("load requirements: %w", err)
	}
	docs, err := s.repo.GetDocumentStatuses(ctx, record.ID)
	if err != nil {
		return false, nil, fmt.Errorf("load document statuses: %w", err)
	}
	result := CheckRequirements(record, docs, reqs, model.StageDocuments)
	if result.Valid {
		// Requirements are met but stage 2 was never verified by an
		// operator; the gate stays shut until AdvanceStage runs.
		return false, []string{"stage 2 verification"}, nil
	}
	return false, result.Missing, nil
}

// GetStatus returns the record plus derived booking eligibility. The
// legacy grant flag is reported for operators reviewing migrated
// accounts; it does not open the gate.
func (s *Service) GetStatus(ctx context.Context, requesterID, groupID int64) (*Status, error) {
	record, err := s.repo.GetQualificationByRequester(ctx, requesterID, groupID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("qualification for requester %d group %d: %w", requesterID, groupID, domain.ErrNotFound)
	}
	legacy, err := s.repo.HasLegacyGrant(ctx, requesterID, groupID)
	if err != nil {
		return nil, fmt.Errorf("check legacy grant: %w", err)
	}
	return &Status{
		Record:         record,
		BookingEnabled: record.BookingUnlocked(),
		HadLegacyGrant: legacy,
	}, nil
}

func (s *Service) publish(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// firstIncompleteStage returns the earliest stage without a timestamp.
func firstIncompleteStage(record *model.QualificationRecord) int {
	for stage := model.StageApplication; stage <= model.StageLicense; stage++ {
		if record.StageTimestamp(stage) == nil {
			return stage
		}
	}
	return model.StageLicense
}
