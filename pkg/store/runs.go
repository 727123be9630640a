package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/entrhq/partyprobe/pkg/agent"
	"github.com/entrhq/partyprobe/pkg/issues"
	"github.com/entrhq/partyprobe/pkg/report"
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         string    `json:"id"`
	TargetURL  string    `json:"target_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Passed     bool      `json:"passed"`
	Agents     int       `json:"agents"`
	Issues     int       `json:"issues"`
}

// SaveReport archives r. Saving the same run again replaces it.
func (s *Store) SaveReport(r *report.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"issues", "agent_results"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, r.RunID); err != nil {
			return fmt.Errorf("replace run: %w", err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, r.RunID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, target_url, started_at, finished_at, passed, agent_count, issue_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.TargetURL, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.Passed(), len(r.Agents), len(r.Issues))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for pos, a := range r.Agents {
		rounds, err := json.Marshal(a.Rounds)
		if err != nil {
			return fmt.Errorf("marshal rounds: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO agent_results (run_id, position, name, role, client_index, success, reason, rounds)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, pos, a.Name, string(a.Role.Kind), a.Role.Index, a.Result.Success, a.Result.Reason, string(rounds))
		if err != nil {
			return fmt.Errorf("insert agent result: %w", err)
		}
	}

	for seq, i := range r.Issues {
		_, err = tx.Exec(`
			INSERT INTO issues (run_id, seq, agent, kind, message, ts, screenshot, url, title)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, seq, i.Agent, string(i.Kind), i.Message, i.Timestamp.UTC().Format(timeLayout), i.Screenshot, i.URL, i.Title)
		if err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanRun(scanner interface {
	Scan(dest ...any) error
}) (*RunSummary, error) {
	r := &RunSummary{}
	var started, finished string
	if err := scanner.Scan(&r.ID, &r.TargetURL, &started, &finished, &r.Passed, &r.Agents, &r.Issues); err != nil {
		return nil, err
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return r, nil
}

const runColumns = `id, target_url, started_at, finished_at, passed, agent_count, issue_count`

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns all runs.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// LoadReport rebuilds the archived report of run id, or returns nil when
// the run is unknown.
func (s *Store) LoadReport(id string) (*report.Report, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	summary, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r := &report.Report{
		RunID:      summary.ID,
		TargetURL:  summary.TargetURL,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}

	rows, err := s.db.Query(`
		SELECT name, role, client_index, success, reason, rounds
		FROM agent_results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get agent results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o      report.Outcome
			kind   string
			reason sql.NullString
			rounds sql.NullString
		)
		if err := rows.Scan(&o.Name, &kind, &o.Role.Index, &o.Result.Success, &reason, &rounds); err != nil {
			return nil, fmt.Errorf("scan agent result: %w", err)
		}
		o.Role.Kind = agent.RoleKind(kind)
		o.Result.Reason = reason.String
		if rounds.Valid && rounds.String != "" {
			if err := json.Unmarshal([]byte(rounds.String), &o.Rounds); err != nil {
				return nil, fmt.Errorf("decode rounds: %w", err)
			}
		}
		r.Agents = append(r.Agents, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if r.Issues, err = s.IssuesForRun(id); err != nil {
		return nil, err
	}
	return r, nil
}

// IssuesForRun returns the issues of run id in emission order.
func (s *Store) IssuesForRun(id string) ([]issues.Issue, error) {
	rows, err := s.db.Query(`
		SELECT agent, kind, message, ts, screenshot, url, title
		FROM issues WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var out []issues.Issue
	for rows.Next() {
		var (
			i                      issues.Issue
			kind, ts               string
			screenshot, url, title sql.NullString
		)
		if err := rows.Scan(&i.Agent, &kind, &i.Message, &ts, &screenshot, &url, &title); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		i.Kind = issues.Kind(kind)
		if i.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse issue timestamp: %w", err)
		}
		i.Screenshot, i.URL, i.Title = screenshot.String, url.String, title.String
		out = append(out, i)
	}
	return out, rows.Err()
}

// KindCounts returns how often each issue kind was recorded across the
// newest limit runs (all runs when limit is zero or less).
func (s *Store) KindCounts(limit int) (map[issues.Kind]int, error) {
	query := `SELECT kind, COUNT(*) FROM issues GROUP BY kind`
	args := []any{}
	if limit > 0 {
		query = `SELECT kind, COUNT(*) FROM issues
			WHERE run_id IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)
			GROUP BY kind`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	defer rows.Close()

	out := make(map[issues.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[issues.Kind(kind)] = n
	}
	return out, rows.Err()
}
