package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/request"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"

	// PathGuildStats is the path for a guild's ticket statistics.
	PathGuildStats = "/guilds/{guild}/stats"

	// PathGuildExport is the path for a guild's configuration export.
	PathGuildExport = "/guilds/{guild}/export"
)

func (a *App) setupRoutes() {
	setupRoutes(a.Logger, a.r, a.healthCheck(), a.tickets)
}

func setupRoutes(l *slog.Logger, r *mux.Router, health http.Handler, m *tickets.Manager) {
	r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)
	r.HandleFunc(PathHealth, middlewareHttp(l, health.ServeHTTP)).Methods(http.MethodGet)
	r.HandleFunc(PathGuildStats, middlewareHttp(l, guildStatsHandler(l, m))).Methods(http.MethodGet)
	r.HandleFunc(PathGuildExport, middlewareHttp(l, guildExportHandler(l, m))).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	r.NotFoundHandler = request.NotFoundHandler(l)

	// MethodNotAllowedHandler is the handler for 405.
	r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(l)
}

func guildStatsHandler(l *slog.Logger, m *tickets.Manager) Controller {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := mux.Vars(r)["guild"]

		report, err := m.Stats(r.Context(), guildID)
		if err != nil {
			l.Error("Error building stats", slog.String(logging.KeyGuild, guildID), slog.String(logging.KeyError, err.Error()))
			writeJSON(l, w, http.StatusInternalServerError, request.NewMessage(request.ErrInternalServer.Error()))
			return
		}
		writeJSON(l, w, http.StatusOK, report)
	}
}

func guildExportHandler(l *slog.Logger, m *tickets.Manager) Controller {
	return func(w http.ResponseWriter, r *http.Request) {
		guildID := mux.Vars(r)["guild"]

		format, err := tickets.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeJSON(l, w, http.StatusBadRequest, request.NewMessageError(request.ErrBadRequest.Error(), err))
			return
		}

		data, err := m.Export(r.Context(), guildID, format)
		if err != nil {
			l.Error("Error exporting guild", slog.String(logging.KeyGuild, guildID), slog.String(logging.KeyError, err.Error()))
			writeJSON(l, w, http.StatusInternalServerError, request.NewMessage(request.ErrInternalServer.Error()))
			return
		}

		contentType := "application/json"
		if format == tickets.FormatYAML {
			contentType = "application/yaml"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			l.Error("Error writing export", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func writeJSON(l *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
	}
}
