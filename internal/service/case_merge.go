package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// CaseMergeService consolidates duplicate cases into a master case.
type CaseMergeService struct {
	deps Dependencies
}

// NewCaseMergeService creates the service.
func NewCaseMergeService(deps Dependencies) *CaseMergeService {
	return &CaseMergeService{deps: deps.withDefaults()}
}

// MergeCases closes every case in caseIDs except the master and logs one merge activity on
// the master. Cases that no longer exist are skipped. The master is returned unchanged.
func (s *CaseMergeService) MergeCases(ctx context.Context, caseIDs []int64, masterID int64, actorID int64) (*domain.Case, error) {
	ids := uniqueIDs(caseIDs)
	if !containsID(ids, masterID) {
		return nil, apperrors.NewInvalidArgument("master case must be one of the cases being merged",
			map[string]any{"master_case_id": masterID, "case_ids": caseIDs})
	}
	if len(ids) < 2 {
		return nil, apperrors.NewInvalidArgument("at least two cases are required to merge",
			map[string]any{"case_ids": caseIDs})
	}

	var (
		master        *domain.Case
		mergedIDs     []int64
		mergedNumbers []string
	)
	err := s.deps.Tx.WithinTx(ctx, func(repos repository.Repositories) error {
		m, err := repos.Cases.GetByIDForUpdate(ctx, masterID)
		if err != nil {
			return lookupError(err, "case", masterID)
		}
		master = m

		var summary strings.Builder
		summary.WriteString("Merged cases:")
		for _, id := range ids {
			if id == masterID {
				continue
			}
			c, err := repos.Cases.GetByIDForUpdate(ctx, id)
			if err != nil {
				if apperrors.IsCode(lookupError(err, "case", id), apperrors.CodeNotFound) {
					continue
				}
				return apperrors.MapError(err)
			}
			fmt.Fprintf(&summary, "\nCase %s: %s", c.CaseNumber, c.Subject)
			oldStatus := c.Status
			c.CloseAsMerged(master.CaseNumber)
			if err := repos.Cases.Update(ctx, c); err != nil {
				return apperrors.MapError(fmt.Errorf("close merged case %d: %w", c.ID, err))
			}
			if err := recordAudit(ctx, repos, &actorID, domain.AuditMerge, "cases", c.ID,
				map[string]any{"status": oldStatus},
				map[string]any{"status": c.Status, "merged_into": master.CaseNumber}); err != nil {
				return apperrors.MapError(err)
			}
			mergedIDs = append(mergedIDs, c.ID)
			mergedNumbers = append(mergedNumbers, c.CaseNumber)
		}

		if err := repos.Activities.Create(ctx, &domain.Activity{
			Record:    domain.CaseRef(master.ID),
			Type:      domain.ActivityMerge,
			Subject:   "Cases Merged",
			Details:   summary.String(),
			CreatedBy: &actorID,
		}); err != nil {
			return apperrors.MapError(fmt.Errorf("log merge activity: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.RecordMerge(len(mergedIDs))
	s.deps.Logger.Info("cases merged",
		zap.Int64("master_case_id", master.ID),
		zap.Int64s("merged_case_ids", mergedIDs),
		zap.Int64("user_id", actorID))
	s.deps.publish(ctx, events.EventCasesMerged, domain.CaseRef(master.ID), &actorID, events.CasesMergedPayload{
		MasterCaseNumber: master.CaseNumber,
		MergedCaseIDs:    mergedIDs,
		MergedNumbers:    mergedNumbers,
	})
	return master, nil
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
