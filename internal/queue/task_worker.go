package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
)

// HistorySource is the read-only query surface the worker needs. It is
// satisfied by service.ReportingService; the worker receives it
// explicitly at start instead of reaching for shared application state.
type HistorySource interface {
	ClosedReservations(ctx context.Context, userID uint64, from, to time.Time) ([]repository.HistoryItem, error)
	Drivers(ctx context.Context) ([]model.User, error)
}

// StartTaskConsumer consumes the parking.tasks queue and executes each
// task. Delivery is at least once, so every task writes its artifact to
// a deterministic path derived from the task arguments and truncates
// any previous content: re-running a duplicate produces the same file.
func StartTaskConsumer(src HistorySource) error {
	backoff := time.Second
	for {
		conn, err := dialBroker()
		if err != nil {
			log.Printf("task-consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, taskQueueName, func(body []byte) error {
			return handleTask(src, body)
		}); err != nil {
			log.Printf("task-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func handleTask(src HistorySource, body []byte) error {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return fmt.Errorf("unmarshal task: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch t.Name {
	case TaskExportHistory:
		return exportHistory(ctx, src, t.Args)
	case TaskActivityReport:
		return activityReport(ctx, src, t.Args)
	default:
		return fmt.Errorf("unknown task %q", t.Name)
	}
}

// taskWindow parses the from/to arguments; a missing window defaults to
// the 30 days preceding now.
func taskWindow(args map[string]string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now.AddDate(0, 0, -30), now
	if s, ok := args["from"]; ok {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad from: %w", err)
		}
		from = t.UTC()
	}
	if s, ok := args["to"]; ok {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad to: %w", err)
		}
		to = t.UTC()
	}
	return from, to, nil
}

// exportHistory regenerates one user's parking-history export. The
// worker prepares the rows; the file is the handoff point to whatever
// delivers the export to the user.
func exportHistory(ctx context.Context, src HistorySource, args map[string]string) error {
	userID, err := strconv.ParseUint(args["user_id"], 10, 64)
	if err != nil || userID == 0 {
		return fmt.Errorf("bad user_id %q", args["user_id"])
	}
	from, to, err := taskWindow(args)
	if err != nil {
		return err
	}
	items, err := src.ClosedReservations(ctx, userID, from, to)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	path := filepath.Join("exports", fmt.Sprintf("history_%d_%s.csv", userID, from.Format("20060102")))
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, "reservation_id,lot_name,spot_number,started_at,ended_at,cost_cents")
	for _, it := range items {
		ended, cost := "", ""
		if it.EndedAt != nil {
			ended = it.EndedAt.UTC().Format(time.RFC3339)
		}
		if it.CostCents != nil {
			cost = strconv.FormatInt(*it.CostCents, 10)
		}
		lines = append(lines, fmt.Sprintf("%d,%q,%d,%s,%s,%s",
			it.ReservationID, it.LotName, it.SpotNumber, it.StartedAt.UTC().Format(time.RFC3339), ended, cost))
	}
	return writeArtifact(path, lines)
}

// activityReport summarizes every driver's closed reservations in the
// window into one report file.
func activityReport(ctx context.Context, src HistorySource, args map[string]string) error {
	from, to, err := taskWindow(args)
	if err != nil {
		return err
	}
	drivers, err := src.Drivers(ctx)
	if err != nil {
		return fmt.Errorf("query drivers: %w", err)
	}

	lines := []string{fmt.Sprintf("activity report %s .. %s", from.Format(time.RFC3339), to.Format(time.RFC3339))}
	for _, u := range drivers {
		items, err := src.ClosedReservations(ctx, u.ID, from, to)
		if err != nil {
			return fmt.Errorf("query history for user %d: %w", u.ID, err)
		}
		var total int64
		for _, it := range items {
			if it.CostCents != nil {
				total += *it.CostCents
			}
		}
		lines = append(lines, fmt.Sprintf("user=%s reservations=%d spent=%d cents", u.Username, len(items), total))
	}

	path := filepath.Join("reports", fmt.Sprintf("activity_%s.txt", from.Format("20060102")))
	return writeArtifact(path, lines)
}

// writeArtifact (re)creates the file with the given lines. Truncation
// plus a deterministic path is what makes duplicate deliveries safe.
func writeArtifact(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
	}
	return nil
}
