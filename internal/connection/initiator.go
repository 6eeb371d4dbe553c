package connection

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/teemow/meetview/internal/apperror"
	"github.com/teemow/meetview/internal/broker"
	"github.com/teemow/meetview/internal/config"
	"github.com/teemow/meetview/internal/logging"
)

const hintAuthConfigEnv = "Please set up Google Calendar auth config in Composio dashboard and add the Auth Config ID to your environment variables"

const hintBrokerKeyEnv = "Set COMPOSIO_API_KEY in the server environment to the project API key from the Composio dashboard"

// Broker is the part of the broker client the Initiator needs.
type Broker interface {
	Initiate(ctx context.Context, req broker.InitiateRequest) (*broker.InitiateResponse, error)
}

// Recorder receives connection initiation outcomes.
type Recorder interface {
	RecordConnectionInitiation(ctx context.Context, result string)
}

// Request is one connection handshake to start.
type Request struct {
	User         string
	ConnectionID string
	AuthConfigID string
	CallbackURL  string
}

// Result is a started handshake.
type Result struct {
	RedirectURL  string
	RequestID    string
	ConnectionID string
}

// Initiator starts connection handshakes at the broker.
type Initiator struct {
	cfg      *config.Config
	broker   Broker
	resolver *Resolver
	store    Store
	recorder Recorder
	logger   *slog.Logger
}

// InitiatorOption configures an Initiator.
type InitiatorOption func(*Initiator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) InitiatorOption {
	return func(i *Initiator) { i.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) InitiatorOption {
	return func(i *Initiator) { i.logger = l }
}

// WithResolver replaces the default UUID resolver.
func WithResolver(r *Resolver) InitiatorOption {
	return func(i *Initiator) { i.resolver = r }
}

// NewInitiator creates an Initiator.
func NewInitiator(cfg *config.Config, b Broker, store Store, opts ...InitiatorOption) *Initiator {
	i := &Initiator{
		cfg:      cfg,
		broker:   b,
		resolver: NewResolver(),
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Initiate starts a handshake for req.ConnectionID. Preconditions are checked
// in order (identity, broker key, auth config) and no broker call is made if
// any of them fails.
func (i *Initiator) Initiate(ctx context.Context, req Request) (*Result, error) {
	if req.User == "" {
		return nil, apperror.ErrUnauthorized()
	}
	if _, err := i.cfg.RequireBrokerKey(); err != nil {
		return nil, apperror.ErrMisconfigured(config.EnvBrokerAPIKey, hintBrokerKeyEnv).WithCause(err)
	}
	if req.AuthConfigID == "" {
		return nil, apperror.ErrMisconfigured(config.EnvAuthConfigID, hintAuthConfigEnv).
			WithCause(&config.MissingSettingError{Name: config.EnvAuthConfigID})
	}

	resp, err := i.broker.Initiate(ctx, broker.InitiateRequest{
		ConnectionID: req.ConnectionID,
		AuthConfigID: req.AuthConfigID,
		CallbackURL:  req.CallbackURL,
	})
	if err != nil {
		return nil, apperror.Classify(apperror.Initiation, err)
	}
	if resp.RedirectURL == "" {
		return nil, apperror.New(apperror.ConnectionInitiationFailed, "No connection URL available")
	}

	return &Result{
		RedirectURL:  resp.RedirectURL,
		RequestID:    resp.ID,
		ConnectionID: req.ConnectionID,
	}, nil
}

// Connect resolves the caller's connection identity, starts a handshake with
// the configured auth config and callback, and renews the stored identity on
// success.
func (i *Initiator) Connect(w http.ResponseWriter, r *http.Request, user string) (*Result, error) {
	ctx := r.Context()
	logger := logging.WithOperation(i.logger, "connect").With(logging.UserHash(user))

	res, err := i.connect(w, r, user, logger)
	i.finish(ctx, logger, res, err)
	return res, err
}

func (i *Initiator) finish(ctx context.Context, logger *slog.Logger, res *Result, err error) {
	result := logging.StatusSuccess
	if err != nil {
		result = logging.StatusError
		logger.Warn("connection initiation failed",
			logging.ErrorKind(string(apperror.KindOf(err))),
			logging.Err(err))
	} else {
		logger.Info("connection initiated", logging.ConnectionID(res.ConnectionID))
		logger.Debug("connection redirect", slog.String("redirect_url", res.RedirectURL))
	}
	if i.recorder != nil {
		i.recorder.RecordConnectionInitiation(ctx, result)
	}
}

// ConnectUser starts a handshake for a caller without a browser exchange.
// With a keyed store the stored identifier is reused or minted and renewed;
// otherwise the verified identity itself is the connection identity, which
// is also what the meetings query falls back to.
func (i *Initiator) ConnectUser(ctx context.Context, user string) (*Result, error) {
	logger := logging.WithOperation(i.logger, "connect").With(logging.UserHash(user))

	res, err := i.connectUser(ctx, user, logger)
	i.finish(ctx, logger, res, err)
	return res, err
}

func (i *Initiator) connectUser(ctx context.Context, user string, logger *slog.Logger) (*Result, error) {
	if user == "" {
		return nil, apperror.ErrUnauthorized()
	}

	ks, keyed := i.store.(KeyedStore)
	id := user
	if keyed {
		stored, err := ks.Get(ctx, user)
		if err != nil {
			logger.Warn("connection identifier lookup failed, minting a new one", logging.Err(err))
			stored = ""
		}
		id, _ = i.resolver.Resolve(stored)
	}

	res, err := i.Initiate(ctx, Request{
		User:         user,
		ConnectionID: id,
		AuthConfigID: i.cfg.Broker.AuthConfigID,
		CallbackURL:  i.cfg.CallbackURL(),
	})
	if err != nil {
		return nil, err
	}

	if keyed {
		if err := ks.Put(ctx, user, id); err != nil {
			return nil, apperror.New(apperror.ConnectionInitiationFailed, "Failed to create connection").WithCause(err)
		}
	}
	return res, nil
}

func (i *Initiator) connect(w http.ResponseWriter, r *http.Request, user string, logger *slog.Logger) (*Result, error) {
	if user == "" {
		return nil, apperror.ErrUnauthorized()
	}

	stored, err := i.store.Lookup(r, user)
	if err != nil {
		logger.Warn("connection identifier lookup failed, minting a new one", logging.Err(err))
		stored = ""
	}
	id, created := i.resolver.Resolve(stored)
	if created {
		logger.Debug("created connection identifier", logging.ConnectionID(id))
	}

	res, err := i.Initiate(r.Context(), Request{
		User:         user,
		ConnectionID: id,
		AuthConfigID: i.cfg.Broker.AuthConfigID,
		CallbackURL:  i.cfg.CallbackURL(),
	})
	if err != nil {
		return nil, err
	}

	if err := i.store.Persist(w, r, user, id); err != nil {
		return nil, apperror.New(apperror.ConnectionInitiationFailed, "Failed to create connection").WithCause(err)
	}
	return res, nil
}
