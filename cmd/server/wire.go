//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"relaychat/internal/config"
	"relaychat/internal/handler"
	"relaychat/internal/hub"
	"relaychat/internal/service"
)

// InitializeApp creates a new application.
func InitializeApp() (*App, func(), error) {
	wire.Build(
		config.Load,
		provideLogger,
		// Storage Providers
		wire.NewSet(
			provideMessageStore,
			provideUserRepository,
		),
		// Service Providers
		wire.NewSet(
			provideUserService,
			wire.Bind(new(service.IUserService), new(*service.UserService)),
		),
		// Coordinator & HTTP Providers
		hub.NewHub,
		handler.New,
		// App Provider
		wire.NewSet(
			wire.Struct(new(App), "*"),
		),
	)
	return nil, nil, nil
}
