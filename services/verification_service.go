package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Replant-Application/Replant-BE-sub002/apperrors"
	"github.com/Replant-Application/Replant-BE-sub002/config"
	"github.com/Replant-Application/Replant-BE-sub002/logger"
	"github.com/Replant-Application/Replant-BE-sub002/models"
)

// VerificationService runs the crowd-quorum state machine. The quorum
// transition itself is a conditional UPDATE on status = PENDING, so with
// concurrent voters exactly one transaction flips the submission and
// applies the reward; everyone else only increments counters.
type VerificationService struct {
	DB               *gorm.DB
	ApproveThreshold int
	RejectThreshold  int
}

func NewVerificationService(db *gorm.DB) *VerificationService {
	approve := config.Cfg.ApproveThreshold
	if approve < 1 {
		approve = 3
	}
	reject := config.Cfg.RejectThreshold
	if reject < 1 {
		reject = 3
	}
	return &VerificationService{
		DB:               db,
		ApproveThreshold: approve,
		RejectThreshold:  reject,
	}
}

// Submit posts a proof for an ASSIGNED mission instance. One submission
// per instance; the deadline is enforced at submit time.
func (s *VerificationService) Submit(externalUserID, instanceID, content string, imageURLs []string, now time.Time) (*models.VerificationSubmission, error) {
	var submission *models.VerificationSubmission

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var instance models.MissionInstance
		err := tx.Where("id = ? AND external_user_id = ?", instanceID, externalUserID).First(&instance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound
		}
		if err != nil {
			return err
		}

		if instance.Status == models.MissionCompleted {
			return apperrors.AlreadyCompleted
		}
		if !instance.CanSubmit(now) {
			return apperrors.InvalidTransition
		}

		var existing int64
		err = tx.Model(&models.VerificationSubmission{}).
			Where("mission_instance_id = ?", instanceID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.DuplicateSubmission
		}

		submission = &models.VerificationSubmission{
			ExternalUserID:    externalUserID,
			MissionInstanceID: instanceID,
			Content:           content,
			ImageURLs:         encodeImageURLs(imageURLs),
			Status:            models.SubmissionPending,
		}
		if err := tx.Create(submission).Error; err != nil {
			return err
		}

		return tx.Model(&models.MissionInstance{}).
			Where("id = ?", instanceID).
			Update("submission_id", submission.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.L.Info("📝 Proof submitted",
		zap.String("user_id", externalUserID),
		zap.String("instance_id", instanceID),
	)
	return submission, nil
}

// EditContent updates a pending submission's content. Votes already cast
// are kept; only the owner may edit.
func (s *VerificationService) EditContent(submissionID, externalUserID, content string, imageURLs []string) (*models.VerificationSubmission, error) {
	var submission models.VerificationSubmission
	err := s.DB.Where("id = ?", submissionID).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound
	}
	if err != nil {
		return nil, err
	}
	if submission.ExternalUserID != externalUserID {
		return nil, apperrors.NotSubmissionOwner
	}

	updates := map[string]interface{}{
		"content":    content,
		"updated_at": time.Now(),
	}
	if imageURLs != nil {
		updates["image_urls"] = encodeImageURLs(imageURLs)
	}

	// Conditional on PENDING so an edit racing a quorum flip can never
	// land on a closed submission.
	res := s.DB.Model(&models.VerificationSubmission{}).
		Where("id = ? AND status = ?", submissionID, models.SubmissionPending).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.SubmissionClosed
	}

	if err := s.DB.Where("id = ?", submissionID).First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// CastVote records a vote and, when the tally reaches a threshold, runs
// the quorum transition. All of it commits in one transaction: the vote
// row, the counter bump, the status flip, the reward, and the outbox
// event, so a crash can never leave a half-applied outcome.
func (s *VerificationService) CastVote(submissionID, voterID, choice string, now time.Time) (*models.VerificationSubmission, error) {
	if choice != models.VoteApprove && choice != models.VoteReject {
		return nil, fmt.Errorf("invalid vote choice %q", choice)
	}

	var submission *models.VerificationSubmission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.VerificationSubmission
		err := tx.Where("id = ?", submissionID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound
		}
		if err != nil {
			return err
		}

		if sub.ExternalUserID == voterID {
			return apperrors.SelfVote
		}
		if sub.Status != models.SubmissionPending {
			return apperrors.SubmissionClosed
		}

		var voted int64
		err = tx.Model(&models.Vote{}).
			Where("submission_id = ? AND voter_id = ?", submissionID, voterID).
			Count(&voted).Error
		if err != nil {
			return err
		}
		if voted > 0 {
			return apperrors.AlreadyVoted
		}

		vote := models.Vote{
			SubmissionID: submissionID,
			VoterID:      voterID,
			Choice:       choice,
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}

		counter := "approve_count"
		if choice == models.VoteReject {
			counter = "reject_count"
		}
		err = tx.Model(&models.VerificationSubmission{}).
			Where("id = ?", submissionID).
			Update(counter, gorm.Expr(counter+" + 1")).Error
		if err != nil {
			return err
		}

		if err := tx.Where("id = ?", submissionID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Revoked between our counter bump and the reload.
				return apperrors.NotFound
			}
			return err
		}

		switch {
		case sub.ApproveCount >= s.ApproveThreshold:
			if err := s.approveTx(tx, &sub, now); err != nil {
				return err
			}
		case sub.RejectCount >= s.RejectThreshold:
			if err := s.rejectTx(tx, &sub, now); err != nil {
				return err
			}
		}

		submission = &sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submission, nil
}

// approveTx flips PENDING -> APPROVED and applies the reward: mission
// completed, exp added, badge issued, outbox event written. The status
// flip is conditional, so only one quorum-reaching voter gets here.
func (s *VerificationService) approveTx(tx *gorm.DB, sub *models.VerificationSubmission, now time.Time) error {
	res := tx.Model(&models.VerificationSubmission{}).
		Where("id = ? AND status = ?", sub.ID, models.SubmissionPending).
		Updates(map[string]interface{}{
			"status":      models.SubmissionApproved,
			"verified_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Another voter's transaction closed it first.
		return apperrors.SubmissionClosed
	}
	sub.Status = models.SubmissionApproved
	sub.VerifiedAt = &now

	instance, err := completeMissionTx(tx, sub.MissionInstanceID, sub.ExternalUserID, &sub.ID, now)
	if err != nil {
		return err
	}

	// The reward target may predate the companion feature; make sure
	// the row exists before applying exp.
	if _, err := ensureCompanionTx(tx, sub.ExternalUserID); err != nil {
		return err
	}
	if _, err := addExpTx(tx, sub.ExternalUserID, instance.ExpReward); err != nil {
		return err
	}

	validityDays := config.Cfg.BadgeValidityDays
	var mt models.MissionType
	if err := tx.Where("tag = ?", instance.MissionTypeTag).First(&mt).Error; err == nil {
		validityDays = mt.BadgeValidityDays
	}
	if _, err := issueBadgeTx(tx, sub.ExternalUserID, instance.MissionTypeTag, instance.ID, validityDays, now); err != nil {
		return err
	}

	if err := insertOutcomeEventTx(tx, models.EventVerificationApproved, sub, instance.ExpReward); err != nil {
		return err
	}

	logger.L.Info("✅ Submission approved",
		zap.String("submission_id", sub.ID),
		zap.String("user_id", sub.ExternalUserID),
		zap.Int("exp", instance.ExpReward),
	)
	return nil
}

// rejectTx flips PENDING -> REJECTED. The mission instance stays
// ASSIGNED but its one-submission slot is spent, so the attempt is over
// unless the owner revokes.
func (s *VerificationService) rejectTx(tx *gorm.DB, sub *models.VerificationSubmission, now time.Time) error {
	res := tx.Model(&models.VerificationSubmission{}).
		Where("id = ? AND status = ?", sub.ID, models.SubmissionPending).
		Updates(map[string]interface{}{
			"status":      models.SubmissionRejected,
			"verified_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.SubmissionClosed
	}
	sub.Status = models.SubmissionRejected
	sub.VerifiedAt = &now

	if err := insertOutcomeEventTx(tx, models.EventVerificationRejected, sub, 0); err != nil {
		return err
	}

	logger.L.Info("❌ Submission rejected",
		zap.String("submission_id", sub.ID),
		zap.String("user_id", sub.ExternalUserID),
	)
	return nil
}

// Revoke deletes a submission and its votes. Revoking an APPROVED
// submission reverses the whole reward: exp subtracted (level-down loop
// included), badge deleted, mission reopened to ASSIGNED. asAdmin skips
// the ownership check.
func (s *VerificationService) Revoke(submissionID, requesterID string, asAdmin bool, now time.Time) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.VerificationSubmission
		err := tx.Where("id = ?", submissionID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound
		}
		if err != nil {
			return err
		}
		if !asAdmin && sub.ExternalUserID != requesterID {
			return apperrors.NotSubmissionOwner
		}

		// Claim the row before branching. The conditional update
		// re-evaluates status against the current row version, so a
		// quorum flip that committed after our read shows up as 0 rows
		// here and we re-read instead of reversing (or skipping the
		// reversal of) the wrong outcome. Status transitions are
		// one-way out of PENDING, so the loop settles after one re-read.
		for {
			res := tx.Model(&models.VerificationSubmission{}).
				Where("id = ? AND status = ?", sub.ID, sub.Status).
				Update("updated_at", now)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				break
			}
			if err := tx.Where("id = ?", sub.ID).First(&sub).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound
				}
				return err
			}
		}

		var instance models.MissionInstance
		err = tx.Where("id = ?", sub.MissionInstanceID).First(&instance).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		haveInstance := err == nil

		if sub.Status == models.SubmissionApproved && haveInstance {
			if _, err := subtractExpTx(tx, sub.ExternalUserID, instance.ExpReward); err != nil {
				return err
			}
			if err := revokeBadgeTx(tx, instance.ID); err != nil {
				return err
			}
			err = tx.Model(&models.MissionInstance{}).
				Where("id = ?", instance.ID).
				Updates(map[string]interface{}{
					"status":        models.MissionAssigned,
					"verified_at":   nil,
					"submission_id": nil,
					"updated_at":    now,
				}).Error
			if err != nil {
				return err
			}
			if err := insertOutcomeEventTx(tx, models.EventVerificationRevoked, &sub, -instance.ExpReward); err != nil {
				return err
			}
		} else if haveInstance {
			// Pending or rejected: just free the submission slot.
			err = tx.Model(&models.MissionInstance{}).
				Where("id = ?", instance.ID).
				Updates(map[string]interface{}{
					"submission_id": nil,
					"updated_at":    now,
				}).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Where("submission_id = ?", sub.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
	if err != nil {
		return err
	}

	logger.L.Info("↩️ Submission revoked",
		zap.String("submission_id", submissionID),
		zap.Bool("admin", asAdmin),
	)
	return nil
}

// GetSubmission fetches one submission by ID.
func (s *VerificationService) GetSubmission(submissionID string) (*models.VerificationSubmission, error) {
	var sub models.VerificationSubmission
	err := s.DB.Where("id = ?", submissionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// PendingFeed lists submissions the viewer can vote on: pending, not
// their own, oldest first so early posts reach quorum sooner.
func (s *VerificationService) PendingFeed(viewerID string, page, pageSize int) ([]models.VerificationSubmission, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := s.DB.Model(&models.VerificationSubmission{}).
		Where("status = ? AND external_user_id <> ?", models.SubmissionPending, viewerID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.VerificationSubmission
	err := q.
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// ListMine returns the user's own submissions, newest first.
func (s *VerificationService) ListMine(externalUserID string, page, pageSize int) ([]models.VerificationSubmission, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := s.DB.Model(&models.VerificationSubmission{}).
		Where("external_user_id = ?", externalUserID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.VerificationSubmission
	err := q.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func insertOutcomeEventTx(tx *gorm.DB, kind string, sub *models.VerificationSubmission, expDelta int) error {
	event := models.OutcomeEvent{
		Kind:              kind,
		ExternalUserID:    sub.ExternalUserID,
		MissionInstanceID: sub.MissionInstanceID,
		SubmissionID:      sub.ID,
		ExpDelta:          expDelta,
	}
	return tx.Create(&event).Error
}

func encodeImageURLs(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return ""
	}
	return string(b)
}
