package process

import (
	"github.com/foxseedlab/jimaku/internal/process"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(do.Injector) (process.Runner, error) {
		return NewExecRunner(), nil
	})
}
