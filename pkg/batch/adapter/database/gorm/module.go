package gorm

import (
	"go.uber.org/fx"
)

// Module provides the GORM connection to Fx. The dialect subpackages must be
// imported (blank import is enough) so their dialector factories register.
var Module = fx.Options(
	fx.Provide(Open),
)
