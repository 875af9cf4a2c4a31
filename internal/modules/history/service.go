package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/nearvault/treasury-api/internal/cache"
	"github.com/nearvault/treasury-api/internal/nearrpc"
	"github.com/nearvault/treasury-api/internal/tokens"
)

const (
	// resultCacheTTL bounds how long a fully reconstructed aggregate is
	// served without touching the chain again.
	resultCacheTTL = 5 * time.Minute

	stakeTxnTTL = 10 * time.Minute

	// nativeZeroBalance is the amount reported for the native token when an
	// account does not exist at a sampled height. Converted output is still
	// "0.00", but the non-zero raw value distinguishes "account absent" from
	// a genuine zero in stored series.
	nativeZeroBalance = "6"
)

// Gateway is the slice of the RPC client the planner needs. Narrowed to an
// interface so tests can substitute a scripted chain.
type Gateway interface {
	Send(ctx context.Context, req nearrpc.Request, opts nearrpc.Options) (*nearrpc.Response, error)
}

// Service reconstructs balance history series. For each period it samples
// block heights backward from the chain head, fetches the balance at each
// height, interpolates display timestamps between the oldest and newest
// sampled blocks, and converts raw amounts to decimal strings.
type Service struct {
	gateway Gateway
	repo    *Repository
	staking *StakingAggregator
	workers pond.Pool
	log     zerolog.Logger

	// result caches complete aggregates keyed account:token. Only aggregates
	// where every period produced points are cached; partial results are
	// recomputed on the next request.
	result *cache.TTL[map[string][]BalancePoint]

	// decimalsCache memoizes ft_metadata lookups for tokens outside the
	// static registry.
	decimalsCache *xsync.Map[string, int]
}

// NewService creates the balance history service. staking may be nil when no
// indexer credentials are configured; native series then carry liquid balance
// only.
func NewService(gateway Gateway, repo *Repository, staking *StakingAggregator, workers pond.Pool, log zerolog.Logger) *Service {
	return &Service{
		gateway:       gateway,
		repo:          repo,
		staking:       staking,
		workers:       workers,
		log:           log.With().Str("service", "history").Logger(),
		result:        cache.NewTTL[map[string][]BalancePoint](512, resultCacheTTL),
		decimalsCache: xsync.NewMap[string, int](),
	}
}

// AllPeriodHistory returns the series for every configured period, keyed by
// period label. Every label is always present; a period whose reconstruction
// failed falls back to the last stored series, or an empty slice.
func (s *Service) AllPeriodHistory(ctx context.Context, accountID, tokenID string) (map[string][]BalancePoint, error) {
	key := accountID + ":" + tokenID
	if cached, ok := s.result.Get(key); ok {
		return cached, nil
	}

	decimals := s.resolveDecimals(ctx, tokenID)

	// The head block anchors every period; it must be live, never cached.
	head, err := s.gateway.Send(ctx, nearrpc.FinalBlock(), nearrpc.Options{DisableCache: true})
	if err != nil {
		s.log.Error().Err(err).Str("account", accountID).Msg("Failed to fetch final block")
		return s.fallback(accountID, tokenID), nil
	}
	header, err := head.Block()
	if err != nil {
		return s.fallback(accountID, tokenID), nil
	}

	var mu sync.Mutex
	out := make(map[string][]BalancePoint, len(Periods))

	// Periods run on plain goroutines; each one fans its balance fetches out
	// on the shared worker pool, and waiting on the pool from inside the pool
	// would deadlock it.
	var wg sync.WaitGroup
	for _, cfg := range Periods {
		cfg := cfg
		wg.Add(1)
		go func() {
			defer wg.Done()
			points, err := s.buildPeriod(ctx, accountID, tokenID, decimals, cfg, &header)
			if err != nil {
				s.log.Warn().Err(err).Str("period", cfg.Period).Str("account", accountID).Msg("Period reconstruction failed")
				points = s.fallbackPeriod(accountID, tokenID, cfg.Period)
			}
			mu.Lock()
			out[cfg.Period] = points
			mu.Unlock()
		}()
	}
	wg.Wait()

	complete := true
	for _, cfg := range Periods {
		points := out[cfg.Period]
		if len(points) == 0 {
			complete = false
			continue
		}
		if err := s.repo.Save(accountID, tokenID, cfg.Period, points); err != nil {
			s.log.Warn().Err(err).Str("period", cfg.Period).Msg("Failed to persist balance history")
		}
		summary := Summarize(cfg.Period, points)
		s.log.Debug().
			Str("account", accountID).
			Str("period", cfg.Period).
			Int("points", len(points)).
			Float64("mean", summary.Mean).
			Msg("Period reconstructed")
	}
	if complete {
		s.result.Set(key, out)
	}
	return out, nil
}

// PeriodHistory returns the series for a single period. label may be one of
// the configured labels or a raw hours-per-step value expressed through cfg.
func (s *Service) PeriodHistory(ctx context.Context, accountID, tokenID string, cfg PeriodConfig) ([]BalancePoint, error) {
	decimals := s.resolveDecimals(ctx, tokenID)

	head, err := s.gateway.Send(ctx, nearrpc.FinalBlock(), nearrpc.Options{DisableCache: true})
	if err != nil {
		return s.fallbackPeriod(accountID, tokenID, cfg.Period), nil
	}
	header, err := head.Block()
	if err != nil {
		return s.fallbackPeriod(accountID, tokenID, cfg.Period), nil
	}

	points, err := s.buildPeriod(ctx, accountID, tokenID, decimals, cfg, &header)
	if err != nil {
		s.log.Warn().Err(err).Str("period", cfg.Period).Msg("Period reconstruction failed")
		return s.fallbackPeriod(accountID, tokenID, cfg.Period), nil
	}
	if len(points) > 0 {
		if err := s.repo.Save(accountID, tokenID, cfg.Period, points); err != nil {
			s.log.Warn().Err(err).Str("period", cfg.Period).Msg("Failed to persist balance history")
		}
	}
	return points, nil
}

// Invalidate drops the cached aggregate and stored series for an account.
func (s *Service) Invalidate(accountID, tokenID string) (int64, error) {
	if tokenID == "" {
		for _, t := range tokens.Registry {
			s.result.Delete(accountID + ":" + t.ID)
		}
	} else {
		s.result.Delete(accountID + ":" + tokenID)
	}
	return s.repo.Purge(accountID, tokenID)
}

// buildPeriod reconstructs one period's series, oldest point first.
func (s *Service) buildPeriod(ctx context.Context, accountID, tokenID string, decimals int, cfg PeriodConfig, head *nearrpc.BlockHeader) ([]BalancePoint, error) {
	heights := sampleHeights(head.Height, cfg)
	if len(heights) == 0 {
		return nil, nil
	}
	archival := RequiresArchival(cfg)

	timestamps, err := s.sampleTimestamps(ctx, heights, head, archival)
	if err != nil {
		return nil, err
	}

	balances := make([]string, len(heights))
	group := s.workers.NewGroupContext(ctx)
	for i, height := range heights {
		i, height := i, height
		group.Submit(func() {
			balances[i] = s.balanceAt(ctx, accountID, tokenID, height, archival)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if tokenID == tokens.NativeTokenID && s.staking != nil {
		staked := s.staking.StakeBalances(ctx, accountID, heights, archival)
		for i := range balances {
			balances[i] = AddBalances(balances[i], staked[i])
		}
	}

	// heights run newest first, timestamps oldest first; zip them so the
	// series comes out ascending.
	points := make([]BalancePoint, len(heights))
	for i := range heights {
		j := len(heights) - 1 - i
		points[j] = BalancePoint{
			Timestamp: timestamps[j],
			Date:      FormatDate(timestamps[j], cfg.Value),
			Balance:   ConvertBalance(balances[i], decimals),
		}
	}
	sort.Slice(points, func(a, b int) bool { return points[a].Timestamp < points[b].Timestamp })
	return points, nil
}

// sampleTimestamps interpolates display timestamps between the oldest sampled
// block and the head. One real block fetch per period instead of one per
// sample.
func (s *Service) sampleTimestamps(ctx context.Context, heights []uint64, head *nearrpc.BlockHeader, archival bool) ([]int64, error) {
	endMillis := head.TimestampMillis()
	if len(heights) == 1 {
		return []int64{endMillis}, nil
	}

	oldest := heights[len(heights)-1]
	resp, err := s.gateway.Send(ctx, nearrpc.BlockByHeight(oldest), nearrpc.Options{Archival: archival})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block %d: %w", oldest, err)
	}
	header, err := resp.Block()
	if err != nil {
		return nil, err
	}
	return InterpolateTimestampsToTenMinutes(header.TimestampMillis(), endMillis, len(heights))
}

// balanceAt fetches the raw balance of one token at one height. Failures and
// absent accounts degrade to a zero-equivalent amount rather than failing the
// whole period.
func (s *Service) balanceAt(ctx context.Context, accountID, tokenID string, height uint64, archival bool) string {
	opts := nearrpc.Options{Archival: archival}

	if tokenID == tokens.NativeTokenID {
		resp, err := s.gateway.Send(ctx, nearrpc.ViewAccount(accountID, height), opts)
		if err != nil {
			if !errors.Is(err, nearrpc.ErrAccountNotFound) {
				s.log.Debug().Err(err).Uint64("height", height).Msg("Account view failed")
			}
			return nativeZeroBalance
		}
		account, err := resp.Account()
		if err != nil {
			return nativeZeroBalance
		}
		return account.Amount
	}

	req := nearrpc.CallFunction(tokenID, "ft_balance_of", map[string]any{"account_id": accountID}, height)
	resp, err := s.gateway.Send(ctx, req, opts)
	if err != nil {
		return "0"
	}
	balance, err := resp.CallResultString()
	if err != nil || balance == "" {
		return "0"
	}
	return balance
}

// resolveDecimals finds a token's precision: static registry first, then a
// live ft_metadata call, then the native default.
func (s *Service) resolveDecimals(ctx context.Context, tokenID string) int {
	if tokenID == tokens.NativeTokenID {
		return tokens.NativeDecimals
	}
	if d, ok := tokens.Decimals(tokenID); ok {
		return d
	}
	if d, ok := s.decimalsCache.Load(tokenID); ok {
		return d
	}

	resp, err := s.gateway.Send(ctx, nearrpc.CallFunctionFinal(tokenID, "ft_metadata", map[string]any{}), nearrpc.Options{})
	if err == nil {
		var meta struct {
			Decimals int `json:"decimals"`
		}
		if raw, err := resp.CallResult(); err == nil && json.Unmarshal(raw, &meta) == nil && meta.Decimals > 0 {
			s.decimalsCache.Store(tokenID, meta.Decimals)
			return meta.Decimals
		}
	}
	s.log.Debug().Str("token", tokenID).Msg("Falling back to native decimals")
	return tokens.NativeDecimals
}

// fallback serves the last stored series when live reconstruction is
// impossible. Every period label is present; missing ones are empty.
func (s *Service) fallback(accountID, tokenID string) map[string][]BalancePoint {
	stored, err := s.repo.LatestByPeriod(accountID, tokenID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read stored balance history")
		stored = map[string][]BalancePoint{}
	}
	out := make(map[string][]BalancePoint, len(Periods))
	for _, cfg := range Periods {
		if points, ok := stored[cfg.Period]; ok {
			out[cfg.Period] = points
		} else {
			out[cfg.Period] = []BalancePoint{}
		}
	}
	return out
}

func (s *Service) fallbackPeriod(accountID, tokenID, period string) []BalancePoint {
	points, err := s.repo.Latest(accountID, tokenID, period)
	if err != nil || points == nil {
		return []BalancePoint{}
	}
	return points
}

// Summarize computes descriptive statistics over a series.
func Summarize(period string, points []BalancePoint) Summary {
	out := Summary{Period: period, Points: len(points)}
	if len(points) == 0 {
		return out
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = parseBalanceFloat(p.Balance)
	}
	sort.Float64s(values)
	out.Min = values[0]
	out.Max = values[len(values)-1]
	out.Mean = stat.Mean(values, nil)
	return out
}
