package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/client/config"
	"github.com/dmitrijs2005/captainslog/internal/client/localdb"
	"github.com/dmitrijs2005/captainslog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/filex"
	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/pipeline"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/captainslog/internal/server/services"
	"github.com/dmitrijs2005/captainslog/internal/session"
	"github.com/dmitrijs2005/captainslog/internal/transcribe"
)

// errLoginRequired is shown when a command needs a session.
var errLoginRequired = errors.New("not logged in, run 'login' or 'register' first")

// Options carries the I/O and collaborators of the CLI. Zero values mean
// stdin, stdout, stderr and the OpenAI client.
type Options struct {
	In          io.Reader
	Out         io.Writer
	Err         io.Writer
	Transcriber transcribe.Client
}

// App is an open journal: local state, the journal database, the session
// and the recording pipeline.
type App struct {
	cfg    *config.Config
	out    io.Writer
	reader *bufio.Reader
	fd     int
	logger logging.Logger

	local    *localdb.Repositories
	repos    repomanager.RepositoryManager
	users    *services.UserService
	session  *session.Session
	log      *journal.Log
	cache    *journal.Cache
	pipeline *pipeline.Pipeline

	detachCache func()
}

func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	opts = opts.withDefaults()
	logger := logging.New(opts.Err, "text", cfg.LogLevel)

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dir

	local, err := localdb.InitDatabase(ctx, cfg.LocalStatePath())
	if err != nil {
		return nil, fmt.Errorf("error initializing local database: %w", err)
	}

	repos, err := repomanager.Open(cfg.JournalURL())
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("error opening journal database: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		repos.Close()
		local.Close()
		return nil, fmt.Errorf("error migrating journal database: %w", err)
	}

	a := &App{
		cfg:    cfg,
		out:    &syncWriter{w: opts.Out},
		reader: bufio.NewReader(opts.In),
		fd:     -1,
		logger: logger,
		local:  local,
		repos:  repos,
		cache:  journal.NewCache(local.DB),
	}
	if f, ok := opts.In.(*os.File); ok {
		a.fd = int(f.Fd())
	}

	secret, err := a.secret(ctx)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.users = services.NewUserService(repos.Users(), services.AuthConfig{SecretKey: secret},
		printNotifier{out: a.out}, logger)
	a.session = session.New(a.users, session.NewMetadataStore(local.Metadata))

	// the cached list is shown until the database is consulted
	cached, err := a.cache.Load(ctx)
	if err != nil {
		logger.Warn(ctx, "failed to load cached log", "error", err)
	}
	a.log = journal.NewLog(cached...)
	a.detachCache = a.cache.Attach(ctx, a.log, func(err error) {
		logger.Warn(ctx, "failed to cache log", "error", err)
	})

	tr := opts.Transcriber
	if tr == nil {
		tr = transcribe.NewOpenAIClient(transcribe.KeyFunc(a.apiKey),
			transcribe.WithBaseURL(cfg.OpenAIBaseURL),
			transcribe.WithModel(cfg.OpenAIModel),
			transcribe.WithLogger(logger),
		)
	}
	a.pipeline = pipeline.New(pipeline.Config{
		Repos:       repos,
		Transcriber: tr,
		Log:         a.log,
		Logger:      logger,
	})

	return a, nil
}

func (o Options) withDefaults() Options {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	return o
}

// Close waits for running transcriptions, then flushes the log cache and
// closes both databases.
func (a *App) Close(ctx context.Context) error {
	a.pipeline.Wait()
	a.detachCache()
	err := a.cache.Save(ctx, a.log.Snapshot())
	return errors.Join(err, a.closeStores())
}

func (a *App) closeStores() error {
	return errors.Join(a.repos.Close(), a.local.Close())
}

// secret returns the local JWT signing key, creating it on first use.
func (a *App) secret(ctx context.Context) ([]byte, error) {
	v, err := a.local.Metadata.Get(ctx, metadata.KeySecret)
	if err != nil {
		return nil, err
	}
	if len(v) > 0 {
		return v, nil
	}
	s, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}
	if err := a.local.Metadata.Set(ctx, metadata.KeySecret, []byte(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// apiKey prefers the key stored with the apikey command over configuration.
func (a *App) apiKey(ctx context.Context) (string, error) {
	v, err := a.local.Metadata.Get(ctx, metadata.KeyAPIKey)
	if err != nil {
		return "", err
	}
	if k := strings.TrimSpace(string(v)); k != "" {
		return k, nil
	}
	return a.cfg.OpenAIAPIKey, nil
}

func (a *App) userID(ctx context.Context) (string, error) {
	id, err := a.session.UserID(ctx)
	if errors.Is(err, session.ErrAnonymous) {
		return "", errLoginRequired
	}
	return id, err
}

// refresh rebuilds the log from the database. On failure the cached list
// stays in place.
func (a *App) refresh(ctx context.Context, userID string) error {
	entries, err := journal.LoadFromRepository(ctx, a.repos.Recordings(), a.repos.Transcriptions(), userID)
	if err != nil {
		a.logger.Warn(ctx, "showing cached entries", "error", err)
		return err
	}
	a.log.Replace(entries)
	return nil
}

// owned loads a recording of the current user.
func (a *App) owned(ctx context.Context, userID, id string) (*models.Recording, error) {
	rec, err := a.repos.Recordings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("recording %s: %w", id, common.ErrNotFound)
	}
	return rec, nil
}

// syncWriter serializes writes from the shell and background search
// results.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrNotFound) }

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// printNotifier shows the reset token on screen; the CLI has no mailer.
type printNotifier struct {
	out io.Writer
}

func (n printNotifier) NotifyPasswordReset(_ context.Context, u *models.User, token string, expiresAt time.Time) error {
	_, err := fmt.Fprintf(n.out, "Reset token for %s: %s (valid until %s)\n",
		u.Email, token, expiresAt.Local().Format(time.DateTime))
	return err
}
