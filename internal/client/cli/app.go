package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/dmarkov/parley/internal/client/config"
	"github.com/dmarkov/parley/internal/client/models"
	"github.com/dmarkov/parley/internal/client/transport"
	"github.com/dmarkov/parley/internal/client/vault"
	"github.com/dmarkov/parley/internal/filex"
	"github.com/dmarkov/parley/internal/handshake"
	"github.com/dmarkov/parley/internal/logging"
	"github.com/dmarkov/parley/internal/workerpool"

	_ "modernc.org/sqlite"
)

// App wires the encrypted vault, the relay transport and the interactive
// REPL together. One App serves one local vault file; within it the user
// can hold any number of accounts and contacts.
type App struct {
	config    *config.Config
	vault     *vault.Vault
	pool      *workerpool.Pool
	transport *transport.Client
	log       logging.Logger
	reader    *bufio.Reader

	mu      sync.Mutex
	session *vault.Session

	// pendingInvites queues inbound invitations until the user runs
	// "respond". The REPL owns stdin, so the prompt cannot interrupt it.
	pendingInvites []*handshake.Invitation

	// replyIn and dhIn carry protocol messages to the one key exchange
	// the REPL is currently driving.
	replyIn chan *handshake.Reply
	dhIn    chan *handshake.DHExchange
}

// NewApp opens the vault database and prepares the worker pool and relay
// client. The relay is not dialed until Run.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if _, err := filex.EnsureParentDir(c.DatabaseDSN); err != nil {
		return nil, err
	}
	db, err := vault.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	pool := workerpool.New(workerpool.DefaultSize(), workerpool.LIFO)

	return &App{
		config:    c,
		vault:     vault.New(db, pool, logger),
		pool:      pool,
		transport: transport.New(c.RelayURL, logger),
		log:       logger,
		reader:    bufio.NewReader(os.Stdin),
		replyIn:   make(chan *handshake.Reply, 4),
		dhIn:      make(chan *handshake.DHExchange, 4),
	}, nil
}

// Run connects to the relay, installs the protocol handlers and hands
// control to the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.pool.Close()

	if err := a.transport.Connect(ctx); err != nil {
		printlnFn("Relay unreachable, invitations are disabled:", err.Error())
	} else {
		a.installHandlers()
	}
	defer a.transport.Close()

	if a.config.Passwordless {
		_ = a.autoUnlock(ctx)
	}

	printlnFn("Parley (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))

	a.mu.Lock()
	if a.session != nil {
		a.session.Close()
	}
	a.mu.Unlock()
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return "locked"
	}
	s := a.session.Account.AccountName
	if len(a.pendingInvites) > 0 {
		s += " *"
	}
	return s
}

func (a *App) isUnlocked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

func (a *App) currentSession() *vault.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// identity builds the handshake identity from the unlocked account.
func (a *App) identity() (handshake.Identity, error) {
	s := a.currentSession()
	key, err := s.Account.PrivateKey()
	if err != nil {
		return handshake.Identity{}, err
	}
	name := s.Account.PublicName
	if name == "" {
		name = s.Account.AccountName
	}
	return handshake.Identity{
		PublicName:    name,
		Key:           key,
		GreetingLimit: a.config.GreetingMaxLen,
	}, nil
}

// contactByName finds a stored contact by its initial name.
func (a *App) contactByName(ctx context.Context, name string) (*models.Contact, error) {
	list, err := a.vault.Contacts(ctx, a.currentSession())
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].InitialName == name {
			return &list[i], nil
		}
	}
	return nil, nil
}
