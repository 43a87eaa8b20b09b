package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketwolf/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/discord"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/schedule"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/gorilla/mux"
)

// IApp is the interface for the application.
type IApp interface {
	// Log returns the logger.
	Log() *slog.Logger

	// Session returns the discord session.
	Session() *discordgo.Session

	// Tickets returns the ticket engine.
	Tickets() *tickets.Manager

	// Adapter returns the chat adapter.
	Adapter() *discord.Adapter

	// Config returns the process configuration.
	Config() *config.Config
}

type App struct {
	// is the logger.
	*slog.Logger

	// cfg is the process configuration.
	cfg *config.Config

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// store is the guild store and ticket archive.
	store *Store

	// adapter is the chat adapter used by the ticket engine.
	adapter *discord.Adapter

	// tickets is the ticket engine.
	tickets *tickets.Manager

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any

	// ready is closed once the gateway reports ready.
	ready     chan struct{}
	readyOnce sync.Once

	// workers are the background sweeps.
	workers []*schedule.Worker
	wg      sync.WaitGroup
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, cfg *config.Config, r *mux.Router, s *discordgo.Session, store *Store, adapter *discord.Adapter, manager *tickets.Manager) *App {
	return &App{
		Logger:  l,
		cfg:     cfg,
		r:       r,
		s:       s,
		store:   store,
		adapter: adapter,
		tickets: manager,
		ready:   make(chan struct{}),
	}
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	if err := a.registerWorkers(); err != nil {
		return fmt.Errorf("error registering workers: %w", err)
	}

	a.registerDiscordHandlers(ctx)

	if a.eventNotifier == nil {
		// Create event notifier. It is buffered to prevent blocking the gateway.
		a.eventNotifier = make(chan any, 100)
	}
	a.s.SetEventNotifier(a.eventNotifier)

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	a.startWorkers(ctx)

	<-ctx.Done()
	a.Info("Received shutdown signal")
	return a.ShutdownHook()
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Wait for any sweep in progress to return.
	a.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if a.svr != nil {
		if err := a.svr.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down monitoring server: %w", err))
		}
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing connection to Discord: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:              ":" + a.cfg.MonitoringPort,
		Handler:           a.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server", slog.String("addr", a.svr.Addr))
		if err := a.svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) registerDiscordHandlers(ctx context.Context) {
	a.s.AddHandler(a.readyHandler(ctx))

	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(ctx, a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Ticket activity and wizard answers.
	a.s.AddHandler(messageCreateHandler(ctx, a))

	// Member leaves close their tickets.
	a.s.AddHandler(memberRemoveHandler(ctx, a))

	// Deleted containers prune their tickets.
	a.s.AddHandler(channelDeleteHandler(ctx, a))
	a.s.AddHandler(threadDeleteHandler(ctx, a))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(ctx, a,
		// Slash Controllers
		map[string]slashCommandController{
			ticketCmd.Name:  ticketCmdController,
			ticketsCmd.Name: ticketsCmdController,
		},
		// Button Controllers
		map[string]commandProcessor{
			tickets.ControlOpen:   openTicketButton,
			tickets.ControlClose:  closeTicketButton,
			tickets.ControlClaim:  claimTicketButton,
			tickets.ControlJoin:   joinTicketButton,
			tickets.ControlReopen: reopenTicketButton,
		},
		// Modal Controllers
		map[tickets.FlowKind]modalProcessor{
			tickets.FlowIntake:      intakeModalSubmit,
			tickets.FlowCloseReason: closeReasonModalSubmit,
		},
	))
}

func (a *App) readyHandler(ctx context.Context) func(s *discordgo.Session, r *discordgo.Ready) {
	return func(_ *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
		a.tickets.SetBotID(r.User.ID)

		a.readyOnce.Do(func() {
			close(a.ready)

			go func() {
				if err := a.tickets.RebuildAll(ctx); err != nil {
					a.Error("Error rebuilding panel controls", slog.String(logging.KeyError, err.Error()))
				}
			}()
		})
	}
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				monitoring.TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				monitoring.TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			monitoring.TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Tickets() *tickets.Manager {
	return a.tickets
}

func (a *App) Adapter() *discord.Adapter {
	return a.adapter
}

func (a *App) Config() *config.Config {
	return a.cfg
}
