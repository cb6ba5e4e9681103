// Package registry keeps a small sqlite ledger of ingested files, backing
// the document listing endpoint and batch reports.
package registry

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"
)

type IngestedFile struct {
	bun.BaseModel `bun:"table:ingested_files,alias:f"`
	ID            int64     `bun:"id,pk,autoincrement" json:"-"`
	Filename      string    `bun:"filename,notnull" json:"filename"`
	Category      string    `bun:"categoria,notnull" json:"categoria"`
	FileType      string    `bun:"file_type,notnull" json:"type"`
	FileSize      int64     `bun:"file_size,notnull" json:"size"`
	Chunks        int       `bun:"chunks,notnull" json:"chunks"`
	IngestedAt    time.Time `bun:"ingested_at,notnull" json:"ingested_at"`
}

func Connect(path string, debug bool) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

func Init(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*IngestedFile)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Record upserts the ledger row for a freshly ingested file. Re-ingesting
// the same filename under the same category replaces the previous row.
func Record(ctx context.Context, db *bun.DB, file *IngestedFile) error {
	_, err := db.NewDelete().
		Model((*IngestedFile)(nil)).
		Where("filename = ? AND categoria = ?", file.Filename, file.Category).
		Exec(ctx)
	if err != nil {
		return err
	}
	file.IngestedAt = time.Now().UTC()
	_, err = db.NewInsert().Model(file).Exec(ctx)
	return err
}

// ListByCategory returns ingested files grouped by category.
func ListByCategory(ctx context.Context, db *bun.DB) (map[string][]IngestedFile, error) {
	var files []IngestedFile
	err := db.NewSelect().
		Model(&files).
		Order("categoria ASC", "filename ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]IngestedFile)
	for _, f := range files {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	return grouped, nil
}
