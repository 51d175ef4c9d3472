package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Module provides the gin engine and exposes it as the server handler.
var Module = fx.Provide(
	Setup,
	func(e *gin.Engine) http.Handler { return e },
)
