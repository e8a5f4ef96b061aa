package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"evhub/src-server/admin"
	"evhub/src-server/attendee"
	"evhub/src-server/auth"
	"evhub/src-server/event"
	"evhub/src-server/messenger"
	"evhub/src-server/model"
	"evhub/src-server/notify"
	"evhub/src-server/support"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// idle time after which a dashboard's roster is dropped
const rosterIdleTimeout = 30 * time.Minute

type AppState struct {
	Config *Config
	// nil when STORE_BACKEND is memory
	RawDB *sql.DB
	BunDB *bun.DB

	MetricChans        *MetricChans
	AppCloseSignalChan chan os.Signal

	Attendees attendee.Store
	Events    *event.Service
	Admin     *admin.Service
	Support   *support.Service
	Auth      *auth.Service
	Sender    messenger.Sender

	Notifications *notify.Hub
	Rosters       *attendee.RosterCache

	shutdownMu            sync.Mutex
	gracefulShutdownChans []chan struct{}
}

func NewAppState(config *Config) (*AppState, error) {
	as := &AppState{
		Config:             config,
		MetricChans:        NewMetricChans(),
		AppCloseSignalChan: make(chan os.Signal, 1),
		Notifications:      notify.NewHub(50),
		Rosters:            attendee.NewRosterCache(),
	}

	var (
		attendees attendee.Store
		events    event.Store
		ping      func(ctx context.Context) error
	)
	switch config.GetStoreBackend() {
	case StoreBackendSqlite:
		if err := as.openDatabase(); err != nil {
			return nil, fmt.Errorf("NewAppState: %w", err)
		}
		attendees = attendee.NewBunStore(as.BunDB)
		events = event.NewBunStore(as.BunDB)
		ping = as.RawDB.PingContext
	default:
		memory := attendee.NewMemoryStore()
		attendees = memory
		events = event.NewMemoryStore()
		ping = func(ctx context.Context) error {
			_, err := memory.List(ctx, "")
			return err
		}
	}
	as.Attendees = attendee.NewInstrumentedStore(attendees, as.MetricChans.StoreRead, as.MetricChans.StoreWrite)

	as.Sender = messenger.NewLogSender()
	if config.GetDiscordAppToken() != "" && config.GetDiscordChannelID() != "" {
		discord, err := messenger.NewDiscordSender(
			config.GetDiscordAppToken(),
			config.GetDiscordChannelID(),
			as.MetricChans.DiscordSendMessage,
		)
		if err != nil {
			slog.Error("can't create discord sender, messages will only be logged", "error", err)
		} else {
			as.Sender = discord
		}
	}

	as.Events = event.NewService(events, as.Attendees)
	as.Admin = admin.NewService(admin.WithPing(ping))
	as.Support = support.NewService()
	as.Auth = auth.NewService(as.Admin, config.GetJWTSecret(), config.GetJWTExpire())

	go as.sweepRosters()

	return as, nil
}

func (as *AppState) openDatabase() error {
	var err error
	as.RawDB, err = sql.Open(sqliteshim.ShimName, as.Config.GetSqlitePath()+"?mode=rwc")
	if err != nil {
		return fmt.Errorf("can't open sqlite database: %w", err)
	}
	as.RawDB.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))

	if err := model.CreateSchema(context.Background(), as.BunDB); err != nil {
		return fmt.Errorf("can't create database schema: %w", err)
	}
	return nil
}

// Roster returns the dashboard roster of sessionID for eventID. A new
// roster is loaded from the store before it's returned.
func (as *AppState) Roster(ctx context.Context, sessionID, eventID string) *attendee.Roster {
	created := false
	roster := as.Rosters.Get(sessionID, eventID, func() *attendee.Roster {
		created = true
		return attendee.NewRoster(
			eventID,
			as.Attendees,
			as.Notifications.Queue(sessionID),
			attendee.WithSender(as.Sender),
		)
	})
	if created {
		roster.Load(ctx)
	}
	return roster
}

func (as *AppState) sweepRosters() {
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	ticker := time.NewTicker(rosterIdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-gracefulShutdownCh:
			return
		case <-ticker.C:
			if removed := as.Rosters.Sweep(rosterIdleTimeout); removed > 0 {
				slog.Debug("idle rosters removed", "count", removed)
			}
		}
	}
}

// CreateGracefulShutdownChan returns a channel that is closed when the app
// shuts down. Background goroutines select on it to stop.
func (as *AppState) CreateGracefulShutdownChan() <-chan struct{} {
	as.shutdownMu.Lock()
	defer as.shutdownMu.Unlock()
	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, ch)
	return ch
}

// GracefulShutdown stops every background goroutine and closes the
// database. Calling it twice is a no-op.
func (as *AppState) GracefulShutdown() {
	as.shutdownMu.Lock()
	chans := as.gracefulShutdownChans
	as.gracefulShutdownChans = nil
	as.shutdownMu.Unlock()

	for _, ch := range chans {
		close(ch)
	}
	if as.BunDB != nil {
		if err := as.BunDB.Close(); err != nil {
			slog.Warn("can't close database", "error", err)
		}
		as.BunDB = nil
	}
}
