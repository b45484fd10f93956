// Package odds integrates The Odds API v4. Odds are enrichment: every
// surface that consumes a board must tolerate an empty one, so the client
// logs upstream trouble and returns empty rather than failing the caller.
package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rahulvdev/betedge/config"
	"github.com/rahulvdev/betedge/internal/canonical"
)

// sportKeys maps canonical sport kinds onto The Odds API sport keys.
var sportKeys = map[canonical.SportKind]string{
	canonical.SportSoccer:            "soccer_epl",
	canonical.SportCollegeFootball:   "americanfootball_ncaaf",
	canonical.SportCollegeBasketball: "basketball_ncaab",
}

// SportKeyFor returns The Odds API sport key for a canonical sport kind.
func SportKeyFor(kind canonical.SportKind) (string, bool) {
	key, ok := sportKeys[kind]
	return key, ok
}

// BoardGame is one upcoming game on an odds board.
type BoardGame struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one bookmaker's markets for a game.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is a single market (h2h, spreads, totals) with its outcomes.
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is one priced outcome within a market.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point,omitempty"`
}

// Board is the full set of upcoming games with odds for one sport key.
type Board struct {
	SportKey  string      `json:"sport_key"`
	FetchedAt time.Time   `json:"fetched_at"`
	Games     []BoardGame `json:"games"`
}

// Client talks to The Odds API.
type Client struct {
	cfg    config.OddsConfig
	http   *http.Client
	logger *log.Logger
}

// NewClient creates an odds client from configuration.
func NewClient(cfg config.OddsConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: log.New(log.Writer(), "[ODDS] ", log.LstdFlags),
	}
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return "https://api.the-odds-api.com/v4"
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("odds API key not configured")
	}
	params.Set("apiKey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("odds API status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// UpcomingBoard fetches the pre-match odds board for one sport key.
// Any upstream trouble yields an empty board and a log line.
func (c *Client) UpcomingBoard(ctx context.Context, sportKey string) Board {
	board := Board{SportKey: sportKey, FetchedAt: time.Now().UTC()}

	regions := c.cfg.Regions
	if regions == "" {
		regions = "us,eu"
	}
	markets := c.cfg.Markets
	if markets == "" {
		markets = "h2h"
	}
	params := url.Values{}
	params.Set("regions", regions)
	params.Set("markets", markets)
	params.Set("oddsFormat", "decimal")

	var games []BoardGame
	if err := c.get(ctx, "/sports/"+sportKey+"/odds", params, &games); err != nil {
		c.logger.Printf("upcoming board fetch failed for %s: %v", sportKey, err)
		return board
	}
	board.Games = games
	return board
}

// LiveScore is one in-play or recently completed game from the scores feed.
type LiveScore struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	Completed    bool      `json:"completed"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Scores       []struct {
		Name  string `json:"name"`
		Score string `json:"score"`
	} `json:"scores"`
}

// LiveScores fetches recent and in-play scores for one sport key.
func (c *Client) LiveScores(ctx context.Context, sportKey string) []LiveScore {
	params := url.Values{}
	params.Set("daysFrom", "3")

	var scores []LiveScore
	if err := c.get(ctx, "/sports/"+sportKey+"/scores", params, &scores); err != nil {
		c.logger.Printf("live scores fetch failed for %s: %v", sportKey, err)
		return nil
	}
	return scores
}

// QuotesForEvent extracts h2h quotes from a board for a canonical event,
// matched by home and away team names. Returns one quote per bookmaker.
func QuotesForEvent(board Board, event canonical.Event) []canonical.MarketQuote {
	var quotes []canonical.MarketQuote
	for _, game := range board.Games {
		if !teamNamesMatch(game.HomeTeam, event.HomeTeamName) || !teamNamesMatch(game.AwayTeam, event.AwayTeamName) {
			continue
		}
		for _, bm := range game.Bookmakers {
			for _, market := range bm.Markets {
				if market.Key != "h2h" {
					continue
				}
				quote := canonical.MarketQuote{
					EventID:    event.EventID,
					Bookmaker:  bm.Key,
					MarketType: "h2h",
					ObservedAt: board.FetchedAt,
				}
				for _, o := range market.Outcomes {
					switch {
					case teamNamesMatch(o.Name, event.HomeTeamName):
						quote.HomePrice = o.Price
					case teamNamesMatch(o.Name, event.AwayTeamName):
						quote.AwayPrice = o.Price
					case strings.EqualFold(o.Name, "Draw"):
						quote.DrawPrice = o.Price
					}
				}
				quotes = append(quotes, quote)
			}
		}
	}
	return quotes
}

func teamNamesMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
