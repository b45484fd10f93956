package odds

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
)

// Fetcher is the board source a Service wraps. *Client satisfies it.
type Fetcher interface {
	UpcomingBoard(ctx context.Context, sportKey string) Board
}

// Service serves odds boards through a Redis cache. A nil redis client
// degrades to pass-through fetching.
type Service struct {
	fetcher Fetcher
	rdb     *redis.Client
	ttl     time.Duration
	logger  *log.Logger
}

// NewService wraps a fetcher with the configured cache. rdb may be nil.
func NewService(fetcher Fetcher, rdb *redis.Client, cfg config.OddsConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		fetcher: fetcher,
		rdb:     rdb,
		ttl:     ttl,
		logger:  log.New(log.Writer(), "[ODDS-CACHE] ", log.LstdFlags),
	}
}

func boardKey(sportKey string) string {
	return "odds:board:" + sportKey
}

// BoardFor returns the odds board for a canonical sport kind, served from
// cache when fresh. Unknown sport kinds and cache trouble yield an empty
// board; the caller treats odds as optional enrichment either way.
func (s *Service) BoardFor(ctx context.Context, kind canonical.SportKind) Board {
	sportKey, ok := SportKeyFor(kind)
	if !ok {
		return Board{}
	}
	return s.board(ctx, sportKey)
}

func (s *Service) board(ctx context.Context, sportKey string) Board {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, boardKey(sportKey)).Bytes()
		if err == nil {
			var board Board
			if err := json.Unmarshal(raw, &board); err == nil {
				return board
			}
			s.logger.Printf("corrupt cached board for %s, refetching", sportKey)
		} else if err != redis.Nil {
			s.logger.Printf("cache read failed for %s: %v", sportKey, err)
		}
	}

	board := s.fetcher.UpcomingBoard(ctx, sportKey)

	// Empty boards are not cached so a transient upstream failure does not
	// blank the board for a full TTL.
	if s.rdb != nil && len(board.Games) > 0 {
		if raw, err := json.Marshal(board); err == nil {
			if err := s.rdb.Set(ctx, boardKey(sportKey), raw, s.ttl).Err(); err != nil {
				s.logger.Printf("cache write failed for %s: %v", sportKey, err)
			}
		}
	}
	return board
}
