package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens the SQLite history database and creates its tables.
func InitDB(path string) error {
	if path == "" {
		return errors.New("database path required")
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        model_name VARCHAR(50),
        mode VARCHAR(10),
        iterations INTEGER,
        updates INTEGER,
        accuracy REAL,
        precision REAL,
        recall REAL,
        data_points INTEGER,
        trained_at DATETIME,
        UNIQUE(run_id)
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        star_wars REAL,
        armageddon REAL,
        sleepless_in_seattle REAL,
        predicted_label INTEGER,
        score REAL,
        created_at DATETIME
    );
    `

	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	if database != nil {
		database.Close()
	}
	database = conn
	return nil
}

func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type TrainingLog struct {
	RunID      string    `json:"run_id"`
	ModelName  string    `json:"model_name"`
	Mode       string    `json:"mode"`
	Iterations int       `json:"iterations"`
	Updates    int       `json:"updates"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	DataPoints int       `json:"data_points"`
	TrainedAt  time.Time `json:"trained_at"`
}

func SaveTrainingLog(entry TrainingLog) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if entry.RunID == "" {
		return errors.New("run id required")
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := database.Exec(`
        INSERT INTO training_log (
            run_id, model_name, mode, iterations, updates,
            accuracy, precision, recall, data_points, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		entry.RunID,
		entry.ModelName,
		entry.Mode,
		entry.Iterations,
		entry.Updates,
		entry.Accuracy,
		entry.Precision,
		entry.Recall,
		entry.DataPoints,
		entry.TrainedAt,
	)
	return err
}

// LoadTrainingLog returns the newest entries first. limit <= 0 returns all.
func LoadTrainingLog(limit int) ([]TrainingLog, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := database.Query(`
        SELECT run_id, model_name, mode, iterations, updates,
               accuracy, precision, recall, data_points, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.RunID, &log.ModelName, &log.Mode, &log.Iterations, &log.Updates,
			&log.Accuracy, &log.Precision, &log.Recall, &log.DataPoints, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

type PredictionRecord struct {
	StarWars           float64
	Armageddon         float64
	SleeplessInSeattle float64
	PredictedLabel     bool
	Score              float64
}

func SavePredictions(runID string, predictions []PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if runID == "" {
		return errors.New("run id required")
	}
	if len(predictions) == 0 {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO predictions (
            run_id, star_wars, armageddon, sleepless_in_seattle, predicted_label, score, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range predictions {
		if _, err := stmt.Exec(runID, p.StarWars, p.Armageddon, p.SleeplessInSeattle, p.PredictedLabel, p.Score, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func LoadPredictions(runID string) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT star_wars, armageddon, sleepless_in_seattle, predicted_label, score
        FROM predictions
        WHERE run_id = ?
        ORDER BY id
    `, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var p PredictionRecord
		if err := rows.Scan(&p.StarWars, &p.Armageddon, &p.SleeplessInSeattle, &p.PredictedLabel, &p.Score); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}
