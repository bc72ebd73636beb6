package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sivaangayarkanni/crm/internal/repository"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrRescoreRunning is returned when a sweep is requested while one runs.
var ErrRescoreRunning = errors.New("rescore sweep already running")

// RescoreStats summarizes one rescore sweep.
type RescoreStats struct {
	Leads    int           `json:"leads"`
	Deals    int           `json:"deals"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// RescoreService recomputes every lead and deal so time-dependent factors
// (lead recency, days until close) stay current.
type RescoreService struct {
	leadRepo    *repository.LeadRepository
	dealRepo    *repository.DealRepository
	leads       *LeadService
	deals       *DealService
	invalidator Invalidator
	workers     int
	batchSize   int
	running     atomic.Bool
}

// NewRescoreService creates a new rescore service
func NewRescoreService(
	leadRepo *repository.LeadRepository,
	dealRepo *repository.DealRepository,
	leads *LeadService,
	deals *DealService,
	invalidator Invalidator,
	workers, batchSize int,
) *RescoreService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = repository.MaxPageSize
	}
	return &RescoreService{
		leadRepo:    leadRepo,
		dealRepo:    dealRepo,
		leads:       leads,
		deals:       deals,
		invalidator: invalidator,
		workers:     workers,
		batchSize:   batchSize,
	}
}

// RescoreAll sweeps every live lead and deal of every tenant. Records that
// fail are logged and counted; the sweep only stops early when ctx ends.
func (s *RescoreService) RescoreAll(ctx context.Context) (*RescoreStats, error) {
	if !s.claim() {
		return nil, ErrRescoreRunning
	}
	defer s.release()

	return s.sweepAll(ctx)
}

// claim marks a sweep as running. It reports false when one already is.
func (s *RescoreService) claim() bool {
	return s.running.CompareAndSwap(false, true)
}

func (s *RescoreService) release() {
	s.running.Store(false)
}

func (s *RescoreService) sweepAll(ctx context.Context) (*RescoreStats, error) {
	start := time.Now()
	var leads, deals, failed atomic.Int64
	var tenants sync.Map

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	sweep := func(list func(context.Context, string, int) ([]repository.RecordRef, error), rescore func(context.Context, string, string) error, done *atomic.Int64, kind string) error {
		after := ""
		for {
			if err := gctx.Err(); err != nil {
				return err
			}

			refs, err := list(gctx, after, s.batchSize)
			if err != nil {
				return fmt.Errorf("failed to list %ss: %w", kind, err)
			}
			if len(refs) == 0 {
				return nil
			}

			for _, ref := range refs {
				g.Go(func() error {
					if err := rescore(gctx, ref.TenantID, ref.ID); err != nil {
						failed.Add(1)
						logger.Warn("Failed to rescore record",
							zap.String("kind", kind),
							zap.String("id", ref.ID),
							zap.Error(err),
						)
						return nil
					}
					done.Add(1)
					tenants.Store(ref.TenantID, struct{}{})
					return nil
				})
			}
			after = refs[len(refs)-1].ID
		}
	}

	listErr := sweep(s.leadRepo.ListRefs, func(ctx context.Context, tenantID, id string) error {
		_, err := s.leads.rescore(ctx, tenantID, id)
		return err
	}, &leads, "lead")
	if listErr == nil {
		listErr = sweep(s.dealRepo.ListRefs, func(ctx context.Context, tenantID, id string) error {
			_, err := s.deals.rescore(ctx, tenantID, id)
			return err
		}, &deals, "deal")
	}

	waitErr := g.Wait()

	tenants.Range(func(key, _ any) bool {
		s.invalidator.Invalidate(ctx, key.(string))
		return true
	})

	stats := &RescoreStats{
		Leads:    int(leads.Load()),
		Deals:    int(deals.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}

	if err := errors.Join(listErr, waitErr); err != nil {
		return stats, err
	}
	return stats, nil
}
