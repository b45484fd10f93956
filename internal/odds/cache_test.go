package odds

import (
	"context"
	"testing"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
)

type stubFetcher struct {
	calls int
	board Board
}

func (s *stubFetcher) UpcomingBoard(ctx context.Context, sportKey string) Board {
	s.calls++
	b := s.board
	b.SportKey = sportKey
	return b
}

func TestServicePassThroughWithoutRedis(t *testing.T) {
	fetcher := &stubFetcher{board: Board{Games: []BoardGame{{ID: "g1"}}}}
	svc := NewService(fetcher, nil, config.OddsConfig{})

	board := svc.BoardFor(context.Background(), canonical.SportSoccer)
	if board.SportKey != "soccer_epl" {
		t.Errorf("sport key = %q, want soccer_epl", board.SportKey)
	}
	if len(board.Games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(board.Games))
	}

	svc.BoardFor(context.Background(), canonical.SportSoccer)
	if fetcher.calls != 2 {
		t.Errorf("pass-through should fetch every call, got %d calls", fetcher.calls)
	}
}

func TestServiceUnknownSportKind(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := NewService(fetcher, nil, config.OddsConfig{})

	board := svc.BoardFor(context.Background(), canonical.SportKind("cricket"))
	if len(board.Games) != 0 || board.SportKey != "" {
		t.Errorf("expected empty board for unmapped sport, got %+v", board)
	}
	if fetcher.calls != 0 {
		t.Errorf("unmapped sport should not hit the fetcher")
	}
}
