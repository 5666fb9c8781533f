// Package pipeline orchestrates a single user request end to end: verify the
// bearer token, authorize its role against the shared policy, retrieve
// context from that role's partition only, and generate a grounded answer.
//
// Authentication, authorization, and retrieval failures abort the request
// with a typed error. Generation failures do not: the caller always receives
// a well-formed ChatResponse, flagged as degraded, so that a flaky completion
// backend never turns into an error page for a user who is otherwise allowed
// to ask.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/rolerag/internal/auth"
	"github.com/54b3r/rolerag/internal/generator"
	"github.com/54b3r/rolerag/internal/logging"
	"github.com/54b3r/rolerag/internal/rag"
	"github.com/54b3r/rolerag/internal/store"
)

// ErrEmptyQuery is returned when a query is empty after trimming whitespace.
var ErrEmptyQuery = errors.New("pipeline: query must not be empty")

// DefaultHistoryLimit is the number of exchanges History returns when the
// caller does not ask for a specific count.
const DefaultHistoryLimit = 20

// Authenticator verifies a username and password.
type Authenticator interface {
	Authenticate(username, password string) (auth.UserRecord, error)
}

// Tokens issues and validates signed role tokens.
type Tokens interface {
	Issue(subject, role string) (string, error)
	Validate(token string) (auth.Claims, error)
	TTL() time.Duration
}

// Answerer produces an answer from a query and its retrieved context.
type Answerer interface {
	Generate(ctx context.Context, query string, docs []string) generator.Answer
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	// AccessToken is the signed bearer token.
	AccessToken string `json:"access_token"`
	// TokenType is always "bearer".
	TokenType string `json:"token_type"`
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// ChatResponse is the result of a chat request.
type ChatResponse struct {
	// Username is the token subject.
	Username string `json:"username"`
	// Role is the token role the answer was grounded in.
	Role string `json:"role"`
	// Query is the question as received.
	Query string `json:"query"`
	// Answer is the model's answer or the degraded fallback text.
	Answer string `json:"answer"`
	// Degraded is true when Answer is the fallback text.
	Degraded bool `json:"degraded,omitempty"`
	// Failure carries the generation failure for operator metrics. It is
	// never serialised.
	Failure *generator.Failure `json:"-"`
}

// Config holds the collaborators of a Service.
type Config struct {
	// Credentials verifies login attempts. Required.
	Credentials Authenticator
	// Tokens issues and validates bearer tokens. Required.
	Tokens Tokens
	// Policy is the shared role allow-list. Required.
	Policy *auth.Policy
	// Retriever performs role-scoped retrieval. Required.
	Retriever rag.Retriever
	// Generator answers queries. Required.
	Generator Answerer
	// History records completed exchanges. Optional.
	History store.HistoryStore
	// TopK is the number of documents retrieved per query. Zero selects
	// rag.DefaultTopK.
	TopK int
}

// Service is the request orchestrator. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	// cfg is the validated configuration.
	cfg Config
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Credentials == nil:
		return nil, fmt.Errorf("pipeline: credentials are required")
	case cfg.Tokens == nil:
		return nil, fmt.Errorf("pipeline: token service is required")
	case cfg.Policy == nil:
		return nil, fmt.Errorf("pipeline: role policy is required")
	case cfg.Retriever == nil:
		return nil, fmt.Errorf("pipeline: retriever is required")
	case cfg.Generator == nil:
		return nil, fmt.Errorf("pipeline: generator is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = rag.DefaultTopK
	}
	return &Service{cfg: cfg}, nil
}

// Login authenticates username and password and issues a token carrying the
// user's configured role.
func (s *Service) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	user, err := s.cfg.Credentials.Authenticate(username, password)
	if err != nil {
		return TokenResponse{}, err
	}

	token, err := s.cfg.Tokens.Issue(user.Username, user.Role)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("pipeline: issue token: %w", err)
	}

	logging.FromContext(ctx).Info("pipeline: token issued",
		slog.String("username", user.Username),
		slog.String("role", user.Role),
	)
	return TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.cfg.Tokens.TTL() / time.Second),
	}, nil
}

// Authorize validates token and checks its role against the policy. The
// returned claims are safe to use for partition selection.
func (s *Service) Authorize(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := s.cfg.Tokens.Validate(token)
	if err != nil {
		var te *auth.TokenError
		if errors.As(err, &te) {
			logging.FromContext(ctx).Info("pipeline: token rejected", slog.String("kind", te.Kind.String()))
		}
		return auth.Claims{}, err
	}
	if err := s.cfg.Policy.Authorize(claims.Role); err != nil {
		logging.FromContext(ctx).Warn("pipeline: role not permitted",
			slog.String("username", claims.Subject),
			slog.String("role", claims.Role),
		)
		return auth.Claims{}, err
	}
	return claims, nil
}

// Chat answers query for the bearer of token using only documents from the
// token's role partition.
func (s *Service) Chat(ctx context.Context, token, query string) (ChatResponse, error) {
	claims, err := s.Authorize(ctx, token)
	if err != nil {
		return ChatResponse{}, err
	}
	if strings.TrimSpace(query) == "" {
		return ChatResponse{}, ErrEmptyQuery
	}

	log := logging.FromContext(ctx).With(
		slog.String("username", claims.Subject),
		slog.String("role", claims.Role),
	)
	ctx = logging.WithLogger(ctx, log)

	docs, err := s.cfg.Retriever.Retrieve(ctx, query, claims.Role, s.cfg.TopK)
	if err != nil {
		return ChatResponse{}, err
	}

	answer := s.cfg.Generator.Generate(ctx, query, rag.Contents(docs))
	resp := ChatResponse{
		Username: claims.Subject,
		Role:     claims.Role,
		Query:    query,
		Answer:   answer.Text,
		Degraded: answer.Degraded(),
		Failure:  answer.Failure,
	}
	if resp.Degraded {
		log.Warn("pipeline: returning degraded answer", slog.String("reason", string(answer.Failure.Reason)))
	}

	s.record(ctx, resp)
	return resp, nil
}

// Retrieve returns the contents of the documents Chat would ground its answer
// in, without calling the completion backend.
func (s *Service) Retrieve(ctx context.Context, token, query string) ([]string, error) {
	claims, err := s.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	docs, err := s.cfg.Retriever.Retrieve(ctx, query, claims.Role, s.cfg.TopK)
	if err != nil {
		return nil, err
	}
	return rag.Contents(docs), nil
}

// History returns the bearer's most recent exchanges, newest first. Without a
// configured history store it returns an empty list.
func (s *Service) History(ctx context.Context, token string, limit int) ([]store.Exchange, error) {
	claims, err := s.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.cfg.History == nil {
		return []store.Exchange{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	out, err := s.cfg.History.Recent(ctx, claims.Subject, limit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load history: %w", err)
	}
	return out, nil
}

// record persists a completed exchange. Failures are logged and ignored so
// that history never blocks an answer.
func (s *Service) record(ctx context.Context, resp ChatResponse) {
	if s.cfg.History == nil {
		return
	}
	err := s.cfg.History.Append(ctx, store.Exchange{
		Username: resp.Username,
		Role:     resp.Role,
		Query:    resp.Query,
		Answer:   resp.Answer,
		Degraded: resp.Degraded,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist exchange", slog.Any("error", err))
	}
}
