package fx

import (
	"glslang-runner/db"

	"go.uber.org/fx"
)

// Module provides the run history connection under the name "runs".
var Module = fx.Module(
	"sqlx-runs-db",
	fx.Provide(
		db.NewSQLXPostgresDB,
		db.NewSQLXSQLiteDB,
		db.NewRunsConn,
	),
)
