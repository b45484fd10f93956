package providers

import (
	"context"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
)

// Filters narrows an adapter fetch. CompetitionCode applies to soccer only;
// Week applies to the college APIs only. Adapters ignore what they don't use.
type Filters struct {
	CompetitionCode string
	Week            int
}

// Adapter translates one upstream API into canonical events.
//
// Fetch reports upstream trouble (transport errors, non-2xx responses,
// non-JSON or malformed payloads) as an error alongside an empty slice, so
// callers can tell a broken fetch from a season that genuinely has no games.
// Callers degrade rather than abort: the events are usable either way. Every
// yielded event is individually well-formed; records that can't be
// normalized are dropped, not passed on.
type Adapter interface {
	Sport() canonical.SportKind
	Fetch(ctx context.Context, season int, f Filters) ([]canonical.Event, error)
}

// New builds the adapter registry keyed by sport kind. Selection by sport
// happens here and at the orchestrator boundary only; nothing downstream
// branches on provider identity.
func New(cfg config.ProvidersConfig) map[canonical.SportKind]Adapter {
	reg := map[canonical.SportKind]Adapter{
		canonical.SportSoccer: NewFootballData(cfg.Football),
		canonical.SportCollegeFootball: NewCollegeSports(
			cfg.CollegeFootball, canonical.SportCollegeFootball, "College Football"),
		canonical.SportCollegeBasketball: NewCollegeSports(
			cfg.CollegeBasketball, canonical.SportCollegeBasketball, "College Basketball"),
	}
	return reg
}
