// Package transfers serves a DAO treasury's merged transfer feed: native and
// fungible token transfers, optionally including a lockup contract, paged and
// deduplicated.
package transfers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearvault/treasury-api/internal/cache"
	"github.com/nearvault/treasury-api/internal/clients/pikespeak"
)

// PageSize is the fixed response page length.
const PageSize = 20

const historyTTL = 2 * time.Minute

// Source is the upstream transfer feed, implemented by the Pikespeak client.
type Source interface {
	NearTransfers(ctx context.Context, accountID string, limit, offset int) ([]pikespeak.Transfer, error)
	FTTransfers(ctx context.Context, accountID string, limit, offset int) ([]pikespeak.Transfer, error)
}

// Service merges and pages transfer feeds.
type Service struct {
	source Source
	log    zerolog.Logger

	// pages caches assembled response pages keyed dao|lockup|page.
	pages *cache.TTL[[]pikespeak.Transfer]
}

// NewService creates the transfers service.
func NewService(source Source, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		log:    log.With().Str("service", "transfers").Logger(),
		pages:  cache.NewTTL[[]pikespeak.Transfer](512, historyTTL),
	}
}

// History returns one page of the merged transfer feed for a DAO, newest
// first. Pages are 1-based. When lockupContract is set, its native transfers
// are folded into the same feed.
func (s *Service) History(ctx context.Context, daoID, lockupContract string, page int) ([]pikespeak.Transfer, error) {
	if page < 1 {
		page = 1
	}
	key := fmt.Sprintf("%s|%s|%d", daoID, lockupContract, page)
	if cached, ok := s.pages.Get(key); ok {
		return cached, nil
	}

	// Upstream feeds are fetched page-aligned up to the requested depth. The
	// merge can only shrink the row count (duplicates), so this depth always
	// covers the requested response page.
	var rows []pikespeak.Transfer
	for p := 0; p < page; p++ {
		offset := p * PageSize

		near, err := s.source.NearTransfers(ctx, daoID, PageSize, offset)
		if err != nil {
			return nil, err
		}
		ft, err := s.source.FTTransfers(ctx, daoID, PageSize, offset)
		if err != nil {
			return nil, err
		}
		rows = append(rows, near...)
		rows = append(rows, ft...)

		if lockupContract != "" {
			lockup, err := s.source.NearTransfers(ctx, lockupContract, PageSize, offset)
			if err != nil {
				return nil, err
			}
			rows = append(rows, lockup...)
		}
	}

	merged := dedupeByTimestamp(rows)
	sort.SliceStable(merged, func(i, j int) bool {
		return transferTime(merged[i]) > transferTime(merged[j])
	})

	start := (page - 1) * PageSize
	if start >= len(merged) {
		return []pikespeak.Transfer{}, nil
	}
	end := start + PageSize
	if end > len(merged) {
		end = len(merged)
	}

	out := merged[start:end]
	s.pages.Set(key, out)
	return out, nil
}

// dedupeByTimestamp keeps the first row per timestamp. The upstream feeds
// overlap: a fungible transfer shows up in both the near and ft streams with
// the same timestamp.
func dedupeByTimestamp(rows []pikespeak.Transfer) []pikespeak.Transfer {
	seen := make(map[string]bool, len(rows))
	out := make([]pikespeak.Transfer, 0, len(rows))
	for _, row := range rows {
		if seen[row.Timestamp] {
			continue
		}
		seen[row.Timestamp] = true
		out = append(out, row)
	}
	return out
}

// transferTime orders rows. Timestamps arrive as epoch nanos or RFC 3339
// depending on the feed.
func transferTime(row pikespeak.Transfer) int64 {
	if n, err := strconv.ParseInt(row.Timestamp, 10, 64); err == nil {
		return n
	}
	if t, err := time.Parse(time.RFC3339, row.Timestamp); err == nil {
		return t.UnixNano()
	}
	return 0
}
