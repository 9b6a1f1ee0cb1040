package abacatepay

import "go.uber.org/fx"

// Module provides the AbacatePay gateway client.
var Module = fx.Module("abacatepay.client",
	fx.Provide(
		fx.Annotate(NewClient, fx.As(new(Gateway))),
	),
)
