package localdb

import (
	"database/sql"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/ptouch-label/internal/shared/logger"
	"go.uber.org/zap"
)

// PrintJobRow is one entry of the print history.
type PrintJobRow struct {
	ID        string
	Text      string
	TapeID    string
	Copies    int
	Printer   string
	IPPJobID  int
	Bytes     int
	DryRun    bool
	CreatedAt int64
}

// SetupPrintJobsTable creates the print_jobs history table.
func SetupPrintJobsTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS print_jobs (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		tape_id TEXT NOT NULL,
		copies INTEGER NOT NULL DEFAULT 1,
		printer TEXT DEFAULT '',
		ipp_job_id INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0,
		dry_run BOOLEAN NOT NULL DEFAULT false,
		created_at INTEGER NOT NULL
	)`

	if _, err := db.Exec(createTableSQL); err != nil {
		logger.Error("Failed to create print_jobs table", zap.Error(err))
		return err
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_print_jobs_created_at ON print_jobs(created_at)`); err != nil {
		logger.Warn("Failed to create print_jobs index", zap.Error(err))
	}

	return nil
}

// SavePrintJob stores one job and returns its id. A blank ID gets a
// generated one.
func SavePrintJob(job PrintJobRow) (string, error) {
	db := GetDB()
	if db == nil {
		logger.Error("Database not initialized")
		return "", sql.ErrConnDone
	}

	if job.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", err
		}
		job.ID = id
	}
	if job.CreatedAt == 0 {
		job.CreatedAt = time.Now().Unix()
	}

	insertSQL := `
	INSERT INTO print_jobs (id, text, tape_id, copies, printer, ipp_job_id, bytes, dry_run, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(insertSQL,
		job.ID,
		job.Text,
		job.TapeID,
		job.Copies,
		job.Printer,
		job.IPPJobID,
		job.Bytes,
		job.DryRun,
		job.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to insert print job", zap.Error(err))
		return "", err
	}

	return job.ID, nil
}

// RecentPrintJobs returns the newest jobs first. A limit of 0 means all.
func RecentPrintJobs(limit int) ([]PrintJobRow, error) {
	db := GetDB()
	if db == nil {
		logger.Error("Database not initialized")
		return nil, sql.ErrConnDone
	}

	query := `
	SELECT id, text, tape_id, copies, printer, ipp_job_id, bytes, dry_run, created_at
	FROM print_jobs
	ORDER BY created_at DESC, rowid DESC
	`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		logger.Error("Failed to query print jobs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	jobs := []PrintJobRow{}
	for rows.Next() {
		var row PrintJobRow
		if err := rows.Scan(
			&row.ID,
			&row.Text,
			&row.TapeID,
			&row.Copies,
			&row.Printer,
			&row.IPPJobID,
			&row.Bytes,
			&row.DryRun,
			&row.CreatedAt,
		); err != nil {
			logger.Error("Failed to scan print job", zap.Error(err))
			continue
		}
		jobs = append(jobs, row)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error iterating print jobs", zap.Error(err))
		return nil, err
	}

	return jobs, nil
}
