//go:build wireinject
// +build wireinject

package main

import (
	"github.com/Jacobbrewer1/ticketwolf/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/google/wire"
	"github.com/gorilla/mux"
)

func InitializeApp() (*App, func(), error) {
	wire.Build(
		wire.Value(logging.Name(config.AppName)),
		logging.NewConfig,
		logging.CommonLogger,
		config.NewConfig,
		mux.NewRouter,
		NewStore,
		NewSession,
		NewAdapter,
		NewTicketManager,
		NewApp,
	)
	return new(App), nil, nil
}
