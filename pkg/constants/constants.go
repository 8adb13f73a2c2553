package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	AuthzKey     ContextKey = "authz"
	AuthzSubject ContextKey = "authz_subject"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
