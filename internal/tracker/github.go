package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	cb "github.com/sony/gobreaker"

	"github.com/davidahmann/specgate/internal/logging"
	"github.com/davidahmann/specgate/internal/workflow"
)

var (
	ErrNotConfigured  = errors.New("github tracker not configured")
	ErrTicketNotFound = errors.New("ticket not found")
)

const (
	DefaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	defaultTimeout = 10 * time.Second
)

type Config struct {
	Token   string
	Owner   string
	Repo    string
	BaseURL string
	Timeout time.Duration
}

// GitHub creates and reads review tickets as GitHub issues. Calls go through
// a circuit breaker so a failing API does not stall every routing step.
type GitHub struct {
	cfg     Config
	client  *http.Client
	breaker *cb.CircuitBreaker
	log     *logging.Logger
}

var _ workflow.TicketTracker = (*GitHub)(nil)

func NewGitHub(cfg Config, log *logging.Logger) *GitHub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logging.Nop()
	}

	settings := cb.Settings{
		Name:        "github-tracker",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrTicketNotFound)
		},
		OnStateChange: func(name string, from, to cb.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}

	return &GitHub{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: cb.NewCircuitBreaker(settings),
		log:     log,
	}
}

func (g *GitHub) IsConfigured() bool {
	return g != nil && g.cfg.Token != "" && g.cfg.Owner != "" && g.cfg.Repo != ""
}

type issueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

type issueResponse struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
	Labels  []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

func (g *GitHub) CreateTicket(ctx context.Context, title, body string, labels []string) (workflow.Ticket, error) {
	var out issueResponse
	if err := g.do(ctx, http.MethodPost, g.repoPath("issues"), issueRequest{Title: title, Body: body, Labels: labels}, &out); err != nil {
		return workflow.Ticket{}, fmt.Errorf("create issue: %w", err)
	}
	g.log.Info().Int("issue", out.Number).Str("title", title).Msg("github issue created")
	return workflow.Ticket{ID: strconv.Itoa(out.Number), URL: out.HTMLURL}, nil
}

func (g *GitHub) GetTicket(ctx context.Context, id string) (workflow.TicketInfo, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return workflow.TicketInfo{}, fmt.Errorf("%w: %q", ErrTicketNotFound, id)
	}
	var out issueResponse
	if err := g.do(ctx, http.MethodGet, g.repoPath("issues/"+id), nil, &out); err != nil {
		return workflow.TicketInfo{}, fmt.Errorf("get issue %s: %w", id, err)
	}
	info := workflow.TicketInfo{State: out.State, Labels: make([]string, 0, len(out.Labels))}
	for _, l := range out.Labels {
		info.Labels = append(info.Labels, l.Name)
	}
	return info, nil
}

func (g *GitHub) AddComment(ctx context.Context, id, text string) error {
	if err := g.do(ctx, http.MethodPost, g.repoPath("issues/"+id+"/comments"), map[string]string{"body": text}, nil); err != nil {
		return fmt.Errorf("comment on issue %s: %w", id, err)
	}
	return nil
}

// AddLabels attaches labels to an issue, e.g. a reviewer marking approval.
func (g *GitHub) AddLabels(ctx context.Context, id string, labels []string) error {
	if err := g.do(ctx, http.MethodPost, g.repoPath("issues/"+id+"/labels"), map[string][]string{"labels": labels}, nil); err != nil {
		return fmt.Errorf("label issue %s: %w", id, err)
	}
	return nil
}

func (g *GitHub) repoPath(suffix string) string {
	return fmt.Sprintf("%s/repos/%s/%s/%s", g.cfg.BaseURL, g.cfg.Owner, g.cfg.Repo, suffix)
}

func (g *GitHub) do(ctx context.Context, method, url string, in any, out any) error {
	if !g.IsConfigured() {
		return ErrNotConfigured
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		var body io.Reader = http.NoBody
		if in != nil {
			b, err := json.Marshal(in)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrTicketNotFound
		}
		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("github api %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}
