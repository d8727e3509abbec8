package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/insert_scoring_batch.sql
var InsertScoringBatch string

//go:embed queries/update_batch_status.sql
var UpdateBatchStatus string

//go:embed queries/delete_batch_rows.sql
var DeleteBatchRows string

//go:embed queries/batch_summary.sql
var BatchSummary string
