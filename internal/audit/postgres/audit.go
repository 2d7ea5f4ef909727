package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/client-portal/internal/audit"
	auditDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/audit"
	"github.com/jmoiron/sqlx"
)

type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertAuditLog = `INSERT INTO ` + auditDatamodel.TableName + `
	(id, occurred_at, user_id, user_name, action, resource_type, resource_id, access_type, status)
	VALUES (:id, :occurred_at, :user_id, :user_name, :action, :resource_type, :resource_id, :access_type, :status)`

func (r *AuditRepository) Insert(ctx context.Context, entry *auditDatamodel.AuditLog) error {
	if _, err := r.db.NamedExecContext(ctx, insertAuditLog, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter) ([]*auditDatamodel.AuditLog, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ResourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, filter.ResourceType)
	}
	if filter.ResourceID != "" {
		where = append(where, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if !filter.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := `SELECT id, occurred_at, user_id, user_name, action, resource_type, resource_id, access_type, status
		FROM ` + auditDatamodel.TableName
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []*auditDatamodel.AuditLog
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return rows, nil
}

func (r *AuditRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM ` + auditDatamodel.TableName + ` WHERE occurred_at < ?`)
	res, err := r.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	return res.RowsAffected()
}
