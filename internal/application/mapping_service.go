package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/mapping"
)

// MappingService fans entity pairs out to a reasoner:
// build prompt -> propose (bounded, per-pair timeout) -> evaluate -> aggregate.
type MappingService struct {
	reasoner domain.Reasoner
	opts     domain.MappingOptions
	log      *zap.Logger
}

func NewMappingService(reasoner domain.Reasoner, opts domain.MappingOptions, log *zap.Logger) *MappingService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	return &MappingService{reasoner: reasoner, opts: opts, log: log}
}

// Map proposes correspondences between every A and B entity. Pair failures
// become warnings on the result; the only errors returned are invalid views,
// a cancelled parent context, or a result that fails its contract.
func (s *MappingService) Map(ctx context.Context, viewA, viewB domain.NormalizedView) (domain.MappingResult, error) {
	if err := mapping.CheckViews(viewA, viewB); err != nil {
		return domain.MappingResult{}, err
	}

	pairs := mapping.Pairs(viewA, viewB)
	outcomes := make([]mapping.Outcome, len(pairs))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrency)
	for i, p := range pairs {
		src, _ := viewA.Entity(p.Source)
		dst, _ := viewB.Entity(p.Target)
		g.Go(func() error {
			outcomes[i] = s.mapPair(ctx, src, dst)
			return nil
		})
	}
	_ = g.Wait() // pair errors live in outcomes

	if err := ctx.Err(); err != nil {
		return domain.MappingResult{}, fmt.Errorf("mapping cancelled: %w", err)
	}

	result, err := mapping.Aggregate(viewA, viewB, outcomes, s.opts.SimilarityCutoff)
	if err != nil {
		return domain.MappingResult{}, err
	}

	s.log.Info("mapping complete",
		zap.Int("pairs", len(pairs)),
		zap.Int("mapped", result.OverallConfidence.MappedEntities),
		zap.Int("unmapped", result.OverallConfidence.UnmappedEntities),
		zap.Int("failed_pairs", result.OverallConfidence.FailedPairs),
		zap.Float64("mean_confidence", result.OverallConfidence.Mean),
	)
	return result, nil
}

type proposal struct {
	reply string
	err   error
}

// mapPair runs one stateless reasoner call under its own timeout. A reasoner
// that ignores its context is abandoned when the timeout fires.
func (s *MappingService) mapPair(ctx context.Context, src, dst domain.Entity) mapping.Outcome {
	pair := domain.EntityPair{Source: src.Name, Target: dst.Name}

	pctx, cancel := ctx, context.CancelFunc(func() {})
	if s.opts.PairTimeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, s.opts.PairTimeout)
	}
	defer cancel()

	req := domain.PairRequest{Source: src, Target: dst, Prompt: mapping.BuildPrompt(src, dst)}
	done := make(chan proposal, 1)
	go func() {
		reply, err := s.reasoner.Propose(pctx, req)
		done <- proposal{reply: reply, err: err}
	}()

	var p proposal
	select {
	case p = <-done:
	case <-pctx.Done():
		p.err = pctx.Err()
	}

	out := mapping.Outcome{Pair: pair}
	if p.err == nil {
		out.Mapping, p.err = mapping.Evaluate(p.reply, src, dst)
	}
	if p.err != nil {
		out.Err = p.err
		s.log.Warn("pair failed",
			zap.String("pair", pair.String()),
			zap.String("reason", mapping.FailureReason(p.err)),
		)
		return out
	}

	s.log.Debug("pair proposed",
		zap.String("pair", pair.String()),
		zap.Float64("confidence", out.Mapping.Confidence),
		zap.Int("field_mappings", len(out.Mapping.FieldMappings)),
	)
	return out
}
