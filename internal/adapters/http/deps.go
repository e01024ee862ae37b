package http

import (
	"github.com/nats-io/nats.go"

	"github.com/yash1732/gigguard/internal/adapters/postgres"
	"github.com/yash1732/gigguard/internal/adapters/valkey"
	"github.com/yash1732/gigguard/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	SOS   *usecases.SOSService
	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}
