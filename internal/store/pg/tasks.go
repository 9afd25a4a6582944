package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// dedupPrefixLen is the "first ~50 chars" window from spec.md §4.3/§9 —
// a deliberate policy approximation, not a correctness property.
const dedupPrefixLen = 50

// TaskStore is the Postgres-backed store.TaskStore, grounded on the
// teacher's internal/store/pg/teams_tasks.go (ClaimTask/CompleteTask
// conditional-UPDATE pattern) generalized to solo-task semantics, and on
// db.py's has_similar_active_task/create_task/complete_task for the exact
// dedup/recurrence policy.
type TaskStore struct {
	db *pgxpool.Pool
}

func NewTaskStore(db *pgxpool.Pool) *TaskStore { return &TaskStore{db: db} }

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.ToLower(strings.TrimSpace(string(r)))
}

// containment reports whether a's dedup-prefix contains b's, or vice versa
// (the bidirectional containment rule from spec.md §4.3).
func containment(a, b string) bool {
	pa, pb := prefix(a, dedupPrefixLen), prefix(b, dedupPrefixLen)
	if pa == "" || pb == "" {
		return false
	}
	return strings.Contains(pa, pb) || strings.Contains(pb, pa)
}

func (s *TaskStore) FindSimilarActive(ctx context.Context, description string) (*store.Task, error) {
	rows, err := s.db.Query(ctx, taskSelectCols+` FROM tasks WHERE status = 'active'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	candidates, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if containment(candidates[i].Description, description) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (s *TaskStore) Create(ctx context.Context, t *store.Task) (*store.Task, error) {
	existing, err := s.FindSimilarActive(ctx, t.Description)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	if t.CheckIntervalDays == 0 {
		t.CheckIntervalDays = 3
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO tasks (type, description, who, deadline, remind_at, recurrence, confidence, source,
			source_msg_id, chat_id, sender_id, sender_name, account, status, track_completion, check_interval_days)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'active',$14,$15)
		RETURNING id, created_at`,
		t.Type, t.Description, t.Who, t.Deadline, t.RemindAt, string(t.Recurrence), t.Confidence, t.Source,
		t.SourceMsgID, t.ChatID, t.SenderID, t.SenderName, t.Account, t.TrackCompletion, t.CheckIntervalDays,
	)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t.Status = store.TaskActive
	return t, nil
}

const taskSelectCols = `SELECT id, type, description, who, deadline, remind_at, remind_at_sent, recurrence, confidence,
	source, source_msg_id, chat_id, sender_id, sender_name, account, status, created_at, completed_at,
	track_completion, last_checked_at, check_interval_days`

func (s *TaskStore) Get(ctx context.Context, id int64) (*store.Task, error) {
	row := s.db.QueryRow(ctx, taskSelectCols+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (s *TaskStore) ListActive(ctx context.Context, filter store.TaskFilter) ([]store.Task, error) {
	q := taskSelectCols + ` FROM tasks WHERE status = 'active'`
	var args []interface{}
	if filter.Type != nil {
		q += ` AND type = $1`
		args = append(args, string(*filter.Type))
	}
	q += ` ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *TaskStore) ListTrackedDue(ctx context.Context, debounce time.Duration) ([]store.Task, error) {
	rows, err := s.db.Query(ctx, taskSelectCols+`
		FROM tasks
		WHERE status = 'active' AND track_completion = TRUE
		  AND (last_checked_at IS NULL OR last_checked_at <= now() - $1::interval)
		ORDER BY created_at`, debounce.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *TaskStore) ListDueReminders(ctx context.Context, now time.Time) ([]store.Task, error) {
	rows, err := s.db.Query(ctx, taskSelectCols+`
		FROM tasks WHERE status = 'active' AND remind_at IS NOT NULL AND remind_at <= $1 AND remind_at_sent = FALSE
		ORDER BY remind_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *TaskStore) ListDueToday(ctx context.Context, today time.Time) ([]store.Task, error) {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	end := start.Add(24 * time.Hour)
	rows, err := s.db.Query(ctx, taskSelectCols+`
		FROM tasks WHERE status = 'active' AND deadline >= $1 AND deadline < $2
		ORDER BY deadline`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *TaskStore) Update(ctx context.Context, id int64, upd store.TaskUpdate) (*store.Task, error) {
	set := []string{}
	args := []interface{}{}
	i := 1
	add := func(col string, val interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Who != nil {
		add("who", *upd.Who)
	}
	if upd.Deadline != nil {
		add("deadline", *upd.Deadline)
	}
	if upd.RemindAt != nil {
		add("remind_at", *upd.RemindAt)
	}
	if upd.Recurrence != nil {
		add("recurrence", string(*upd.Recurrence))
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`, strings.Join(set, ", "), i)
	if _, err := s.db.Exec(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.Get(ctx, id)
}

// Complete sets status=done,completed_at=now; if recurrence is set, clones
// the task with the next occurrence's deadline/remind_at instead of
// mutating in place ("closed-and-respawned", spec.md §4.3).
func (s *TaskStore) Complete(ctx context.Context, id int64) (*store.Task, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, taskSelectCols+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE tasks SET status = 'done', completed_at = now() WHERE id = $1`, id); err != nil {
		return nil, err
	}

	var respawned *store.Task
	if t.Recurrence != store.RecurrenceNone {
		next := *t
		next.ID = 0
		next.Status = store.TaskActive
		next.CompletedAt = nil
		next.RemindAtSent = false
		next.LastCheckedAt = nil
		if next.Deadline != nil {
			d := nextOccurrence(*next.Deadline, t.Recurrence)
			next.Deadline = &d
		}
		if next.RemindAt != nil {
			r := nextOccurrence(*next.RemindAt, t.Recurrence)
			next.RemindAt = &r
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO tasks (type, description, who, deadline, remind_at, recurrence, confidence, source,
				source_msg_id, chat_id, sender_id, sender_name, account, status, track_completion, check_interval_days)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'active',$14,$15)
			RETURNING id, created_at`,
			next.Type, next.Description, next.Who, next.Deadline, next.RemindAt, string(next.Recurrence), next.Confidence,
			next.Source, next.SourceMsgID, next.ChatID, next.SenderID, next.SenderName, next.Account,
			next.TrackCompletion, next.CheckIntervalDays,
		)
		if err := row.Scan(&next.ID, &next.CreatedAt); err != nil {
			return nil, fmt.Errorf("respawn recurring task: %w", err)
		}
		respawned = &next
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return respawned, nil
}

func nextOccurrence(t time.Time, r store.Recurrence) time.Time {
	switch r {
	case store.RecurrenceDaily:
		return t.AddDate(0, 0, 1)
	case store.RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case store.RecurrenceMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t
	}
}

func (s *TaskStore) Cancel(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `UPDATE tasks SET status = 'cancelled' WHERE id = $1 AND status = 'active'`, id)
	return err
}

func (s *TaskStore) Postpone(ctx context.Context, id int64, days int) (*store.Task, error) {
	_, err := s.db.Exec(ctx, `
		UPDATE tasks SET
			deadline = deadline + ($1 || ' days')::interval,
			remind_at = CASE WHEN remind_at IS NOT NULL THEN remind_at + ($1 || ' days')::interval ELSE remind_at END
		WHERE id = $2`, days, id)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *TaskStore) MarkReminderSent(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `UPDATE tasks SET remind_at_sent = TRUE WHERE id = $1`, id)
	return err
}

func (s *TaskStore) MarkChecked(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE tasks SET last_checked_at = $1 WHERE id = $2`, at, id)
	return err
}

func (s *TaskStore) RecordDeadlineNotification(ctx context.Context, taskID int64, date time.Time) (bool, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var count int
	err := s.db.QueryRow(ctx, `
		INSERT INTO deadline_notifications (task_id, date, count) VALUES ($1, $2, 1)
		ON CONFLICT (task_id, date) DO UPDATE SET count = deadline_notifications.count + 1
		RETURNING count`, taskID, day).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 1, nil
}

func scanTask(row pgx.Row) (*store.Task, error) {
	var t store.Task
	var typ, status, recurrence string
	if err := row.Scan(&t.ID, &typ, &t.Description, &t.Who, &t.Deadline, &t.RemindAt, &t.RemindAtSent, &recurrence,
		&t.Confidence, &t.Source, &t.SourceMsgID, &t.ChatID, &t.SenderID, &t.SenderName, &t.Account, &status,
		&t.CreatedAt, &t.CompletedAt, &t.TrackCompletion, &t.LastCheckedAt, &t.CheckIntervalDays); err != nil {
		return nil, err
	}
	t.Type = store.TaskType(typ)
	t.Status = store.TaskStatus(status)
	t.Recurrence = store.Recurrence(recurrence)
	return &t, nil
}

func scanTasks(rows pgx.Rows) ([]store.Task, error) {
	var out []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
