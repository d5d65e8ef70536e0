package websocket

import (
	"github.com/foxseedlab/jimaku/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		return NewHandler(do.MustInvoke[*session.Controller](i), Config{}), nil
	})
}
