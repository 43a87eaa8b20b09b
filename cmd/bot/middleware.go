package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/request"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// slashCommandController resolves the processor of a subcommand path, e.g. "panel create".
type slashCommandController func(a IApp, cmd string) (slashProcessor, error)

// slashProcessor is the processor for slash commands.
type slashProcessor func(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder) error

// commandProcessor is the processor for ticket controls. arg is the argument encoded in the
// control's custom ID.
type commandProcessor func(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, arg string) error

// modalProcessor is the processor for a submitted modal once its flow has been completed.
type modalProcessor func(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, flow *tickets.Flow) error

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(l *slog.Logger, handler Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrInternalServer.Error())); err != nil {
					l.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				l.Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path
			}
		} else {
			path = r.URL.Path
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler dispatches slash commands, ticket controls and modal submissions.
func interactionHandler(
	ctx context.Context,
	a IApp,
	slash map[string]slashCommandController,
	buttons map[string]commandProcessor,
	modals map[tickets.FlowKind]modalProcessor,
) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		r := newResponder(s, i.Interaction)

		if i.GuildID == "" || i.Member == nil {
			if err := r.Ephemeral(messages.ErrGuildOnly); err != nil {
				a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
			}
			return
		}

		name := interactionName(i)
		a.Log().Debug("Handling interaction "+name, slog.String(logging.KeyGuild, i.GuildID))

		t := prometheus.NewTimer(monitoring.DiscordCommandDuration.WithLabelValues(name))
		defer t.ObserveDuration()

		// Recover from any panics so one bad interaction does not take the gateway down.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in interaction",
					slog.String("command", name),
					slog.String(logging.KeyError, fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())),
				)
				monitoring.InteractionErrors.WithLabelValues(name, "panic").Inc()
				respondError(a, r, nil)
			}
		}()

		var err error
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			err = dispatchSlash(ctx, a, i, r, slash)
		case discordgo.InteractionMessageComponent:
			err = dispatchControl(ctx, a, i, r, buttons)
		case discordgo.InteractionModalSubmit:
			err = dispatchModal(ctx, a, i, r, modals)
		default:
			return
		}
		if err == nil {
			return
		}

		kind := tickets.KindOf(err)
		monitoring.InteractionErrors.WithLabelValues(name, kind.String()).Inc()
		if _, ok := tickets.UserMessage(err); !ok {
			a.Log().Error(fmt.Sprintf("Error processing interaction %s", name),
				slog.String(logging.KeyGuild, i.GuildID),
				slog.String(logging.KeyChannel, i.ChannelID),
				slog.String(logging.KeyUser, i.Member.User.ID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
		respondError(a, r, err)
	}
}

// interactionName labels an interaction for logs and metrics.
func interactionName(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if path := commandPath(data.Options); path != "" {
			return data.Name + " " + path
		}
		return data.Name
	case discordgo.InteractionMessageComponent:
		if action, _, ok := tickets.ParseCustomID(i.MessageComponentData().CustomID); ok {
			return "control " + action
		}
		return "control unknown"
	case discordgo.InteractionModalSubmit:
		return "modal"
	}
	return "unknown"
}

// commandPath joins the subcommand group and subcommand names of an invocation.
func commandPath(opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	if len(opts) == 0 {
		return ""
	}
	switch opts[0].Type {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(opts[0].Options) == 0 {
			return opts[0].Name
		}
		return opts[0].Name + " " + opts[0].Options[0].Name
	case discordgo.ApplicationCommandOptionSubCommand:
		return opts[0].Name
	}
	return ""
}

func dispatchSlash(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, controllers map[string]slashCommandController) error {
	data := i.ApplicationCommandData()
	controller, ok := controllers[data.Name]
	if !ok {
		return fmt.Errorf("no controller found for command %s", data.Name)
	}

	processor, err := controller(a, commandPath(data.Options))
	if err != nil {
		return fmt.Errorf("error getting processor for command %s: %w", data.Name, err)
	}
	return processor(ctx, a, i, r)
}

func dispatchControl(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, processors map[string]commandProcessor) error {
	action, arg, ok := tickets.ParseCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return fmt.Errorf("unknown control %s", i.MessageComponentData().CustomID)
	}

	processor, ok := processors[action]
	if !ok {
		return fmt.Errorf("no processor found for control %s", action)
	}
	return processor(ctx, a, i, r, arg)
}

func dispatchModal(ctx context.Context, a IApp, i *discordgo.InteractionCreate, r *responder, processors map[tickets.FlowKind]modalProcessor) error {
	action, flowID, ok := tickets.ParseCustomID(i.ModalSubmitData().CustomID)
	if !ok || action != tickets.ControlModal {
		return fmt.Errorf("unknown modal %s", i.ModalSubmitData().CustomID)
	}

	flow, err := a.Tickets().Flows().Complete(flowID, i.Member.User.ID)
	if err != nil {
		return err
	}

	processor, ok := processors[flow.Kind]
	if !ok {
		return fmt.Errorf("no processor found for flow %s", flow.Kind)
	}
	return processor(ctx, a, i, r, flow)
}
