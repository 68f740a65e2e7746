package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/pkg/clickhouse"
)

var activitySchema = []string{
	`CREATE TABLE IF NOT EXISTS bot_activity (
		session_id String,
		type       LowCardinality(String),
		message    String,
		status     LowCardinality(String),
		details    String,
		ts         DateTime64(3)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (session_id, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,
}

// ClickHouseActivityLog persists activity entries into the bot_activity table.
type ClickHouseActivityLog struct {
	client *clickhouse.Client
}

func NewClickHouseActivityLog(ctx context.Context, client *clickhouse.Client) (*ClickHouseActivityLog, error) {
	if err := client.InitSchema(ctx, activitySchema); err != nil {
		return nil, fmt.Errorf("activity schema: %w", err)
	}
	return &ClickHouseActivityLog{client: client}, nil
}

func (l *ClickHouseActivityLog) Append(ctx context.Context, e *models.ActivityEntry) error {
	details := "{}"
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		details = string(b)
	}

	const q = `INSERT INTO bot_activity (session_id, type, message, status, details, ts)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := l.client.DB().ExecContext(ctx, q,
		e.SessionID, e.Type, e.Message, e.Status, details, e.Timestamp); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (l *ClickHouseActivityLog) Close() error {
	return l.client.Close()
}

var _ domrepo.ActivityLog = (*ClickHouseActivityLog)(nil)
