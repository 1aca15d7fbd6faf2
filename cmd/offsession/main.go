package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/offsession/internal/charge"
	"github.com/smallbiznis/offsession/internal/clock"
	"github.com/smallbiznis/offsession/internal/config"
	"github.com/smallbiznis/offsession/internal/invoice"
	"github.com/smallbiznis/offsession/internal/migration"
	"github.com/smallbiznis/offsession/internal/observability"
	"github.com/smallbiznis/offsession/internal/paymenthistory"
	"github.com/smallbiznis/offsession/internal/paymentmethod"
	"github.com/smallbiznis/offsession/internal/processor"
	"github.com/smallbiznis/offsession/internal/providers"
	"github.com/smallbiznis/offsession/internal/ratelimit"
	"github.com/smallbiznis/offsession/internal/server"
	"github.com/smallbiznis/offsession/internal/webhook"
	"github.com/smallbiznis/offsession/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,
		processor.Module,
		providers.Module,

		// Functional Domains
		paymentmethod.Module,
		paymenthistory.Module,
		invoice.Module,
		charge.Module,
		webhook.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
