package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pixcheckout/internal/abacatepay"
	"github.com/smallbiznis/pixcheckout/internal/clock"
	"github.com/smallbiznis/pixcheckout/internal/config"
	"github.com/smallbiznis/pixcheckout/internal/logger"
	"github.com/smallbiznis/pixcheckout/internal/migration"
	"github.com/smallbiznis/pixcheckout/internal/observability"
	"github.com/smallbiznis/pixcheckout/internal/order"
	"github.com/smallbiznis/pixcheckout/internal/server"
	"github.com/smallbiznis/pixcheckout/internal/webhook"
	"github.com/smallbiznis/pixcheckout/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		abacatepay.Module,
		order.Module,
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
