package history

import (
	"context"
	"fmt"
	"math/big"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/cache"
	"github.com/nearvault/treasury-api/internal/clients/nearblocks"
	"github.com/nearvault/treasury-api/internal/nearrpc"
)

// StakeSource discovers the validator pools an account has staked with.
// Implemented by the NEARBlocks client.
type StakeSource interface {
	StakeTransactions(ctx context.Context, accountID string) ([]nearblocks.StakeTxn, error)
}

// StakingAggregator sums staked balance across validator pools at sampled
// block heights. Native token only.
type StakingAggregator struct {
	gateway Gateway
	source  StakeSource
	workers pond.Pool
	log     zerolog.Logger

	// txnCache holds discovered stake transactions per account. Discovery is
	// an indexer round trip; the set only grows, so a short TTL is plenty.
	txnCache *cache.TTL[[]nearblocks.StakeTxn]

	// memo holds raw pool balances keyed account:height:pool. The same pool
	// recurs across sampled heights within a batch; fetch each combination
	// once.
	memo *xsync.Map[string, string]
}

// NewStakingAggregator creates a staking aggregator.
func NewStakingAggregator(gateway Gateway, source StakeSource, workers pond.Pool, log zerolog.Logger) *StakingAggregator {
	return &StakingAggregator{
		gateway:  gateway,
		source:   source,
		workers:  workers,
		log:      log.With().Str("component", "staking").Logger(),
		txnCache: cache.NewTTL[[]nearblocks.StakeTxn](256, stakeTxnTTL),
		memo:     xsync.NewMap[string, string](),
	}
}

// StakeBalances returns the summed staked balance (raw yocto string) per
// height, aligned index-for-index with heights. Any single pool/height
// failure contributes zero; discovery failure yields all zeros.
func (a *StakingAggregator) StakeBalances(ctx context.Context, accountID string, heights []uint64, archival bool) []string {
	out := make([]string, len(heights))
	for i := range out {
		out[i] = "0"
	}
	if len(heights) == 0 {
		return out
	}

	txns, err := a.stakeTransactions(ctx, accountID)
	if err != nil {
		a.log.Warn().Err(err).Str("account", accountID).Msg("Stake pool discovery failed")
		return out
	}
	if len(txns) == 0 {
		return out
	}

	group := a.workers.NewGroupContext(ctx)
	for i, height := range heights {
		i, height := i, height
		group.Submit(func() {
			pools := poolsActiveAt(txns, height)
			if len(pools) == 0 {
				return
			}
			sum := new(big.Int)
			for _, pool := range pools {
				raw := a.poolBalance(ctx, accountID, pool, height, archival)
				if amount, ok := new(big.Int).SetString(raw, 10); ok {
					sum.Add(sum, amount)
				}
			}
			out[i] = sum.String()
		})
	}
	_ = group.Wait()

	return out
}

func (a *StakingAggregator) stakeTransactions(ctx context.Context, accountID string) ([]nearblocks.StakeTxn, error) {
	if cached, ok := a.txnCache.Get(accountID); ok {
		return cached, nil
	}
	txns, err := a.source.StakeTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	a.txnCache.Set(accountID, txns)
	return txns, nil
}

// poolBalance fetches the account's total balance in one pool at one height,
// memoized for the life of the aggregator.
func (a *StakingAggregator) poolBalance(ctx context.Context, accountID, pool string, height uint64, archival bool) string {
	key := fmt.Sprintf("%s:%d:%s", accountID, height, pool)
	if cached, ok := a.memo.Load(key); ok {
		return cached
	}

	req := nearrpc.CallFunction(pool, "get_account_total_balance", map[string]any{"account_id": accountID}, height)
	resp, err := a.gateway.Send(ctx, req, nearrpc.Options{Archival: archival})
	if err != nil {
		a.log.Debug().Err(err).Str("pool", pool).Uint64("height", height).Msg("Pool balance query failed")
		a.memo.Store(key, "0")
		return "0"
	}

	balance, err := resp.CallResultString()
	if err != nil || balance == "" {
		balance = "0"
	}
	a.memo.Store(key, balance)
	return balance
}

// poolsActiveAt returns the distinct pool ids seen in stake transactions at
// or before the height. Like the existence oracle, the set is monotonic in
// height.
func poolsActiveAt(txns []nearblocks.StakeTxn, height uint64) []string {
	seen := make(map[string]bool)
	var pools []string
	for _, txn := range txns {
		if txn.BlockHeight > height || seen[txn.ReceiverID] {
			continue
		}
		seen[txn.ReceiverID] = true
		pools = append(pools, txn.ReceiverID)
	}
	return pools
}
