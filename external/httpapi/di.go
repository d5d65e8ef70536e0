package httpapi

import (
	"github.com/foxseedlab/jimaku/external/websocket"
	"github.com/foxseedlab/jimaku/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(
			do.MustInvoke[*session.Controller](i),
			do.MustInvoke[*websocket.Handler](i),
		), nil
	})
}
