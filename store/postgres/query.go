package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/rbaliyan/messages/store"
)

// columnFor maps filter field keys to column names. Keys are validated
// before translation, so unknown keys never reach query text.
var columnFor = map[string]string{
	store.FieldID:                 "id",
	store.FieldSenderID:           "sender_id",
	store.FieldRecipientID:        "recipient_id",
	store.FieldParentID:           "parent_id",
	store.FieldSubject:            "subject",
	store.FieldSentAt:             "sent_at",
	store.FieldReadAt:             "read_at",
	store.FieldRepliedAt:          "replied_at",
	store.FieldSenderDeletedAt:    "sender_deleted_at",
	store.FieldRecipientDeletedAt: "recipient_deleted_at",
}

// buildWhere translates filters into a WHERE clause body and arguments.
// Returns an empty clause when there are no filters.
func buildWhere(filters []store.Filter, args *[]any) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		cond, err := buildCondition(f, args)
		if err != nil {
			return "", err
		}
		conds = append(conds, cond)
	}
	return strings.Join(conds, " AND "), nil
}

func buildCondition(f store.Filter, args *[]any) (string, error) {
	switch f.Operator {
	case store.OpAny, store.OpAll:
		sep := " OR "
		if f.Operator == store.OpAll {
			sep = " AND "
		}
		nested := f.Nested()
		conds := make([]string, 0, len(nested))
		for _, n := range nested {
			cond, err := buildCondition(n, args)
			if err != nil {
				return "", err
			}
			conds = append(conds, cond)
		}
		return "(" + strings.Join(conds, sep) + ")", nil
	}

	col, ok := columnFor[f.Key]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", store.ErrFilterInvalid, f.Key)
	}
	switch f.Operator {
	case store.OpEqual:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s = $%d", col, len(*args)), nil
	case store.OpNotEqual:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s <> $%d", col, len(*args)), nil
	case store.OpGreaterThan:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s > $%d", col, len(*args)), nil
	case store.OpGreaterOrEqual:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s >= $%d", col, len(*args)), nil
	case store.OpLessThan:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s < $%d", col, len(*args)), nil
	case store.OpLessOrEqual:
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s <= $%d", col, len(*args)), nil
	case store.OpIn:
		ids, ok := f.Value.([]string)
		if !ok {
			return "", fmt.Errorf("%w: in requires []string", store.ErrFilterInvalid)
		}
		*args = append(*args, pq.Array(ids))
		return fmt.Sprintf("%s = ANY($%d)", col, len(*args)), nil
	case store.OpExists:
		want, _ := f.Value.(bool)
		if want {
			return fmt.Sprintf("%s IS NOT NULL", col), nil
		}
		return fmt.Sprintf("%s IS NULL", col), nil
	default:
		return "", fmt.Errorf("%w: unknown operator %q", store.ErrFilterInvalid, f.Operator)
	}
}

// Get returns the message with the given ID.
func (s *Store) Get(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, s.opts.table)
	return scanMessage(s.db.QueryRowContext(ctx, query, id))
}

// Find returns messages matching all filters, paginated per opts.
// Uses keyset pagination when StartAfter is set; Total is not computed
// (always -1), use Count or MailboxStats for totals.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return nil, err
	}
	sortCol, desc, err := sortClause(opts)
	if err != nil {
		return nil, err
	}

	var args []any
	where, err := buildWhere(filters, &args)
	if err != nil {
		return nil, err
	}
	conds := make([]string, 0, 2)
	if where != "" {
		conds = append(conds, where)
	}
	if opts.StartAfter != "" {
		args = append(args, opts.StartAfter)
		cmp := "<"
		if !desc {
			cmp = ">"
		}
		conds = append(conds, fmt.Sprintf(
			"(%[1]s, id) %[2]s (SELECT %[1]s, id FROM %[3]s WHERE id = $%[4]d)",
			sortCol, cmp, s.opts.table, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, messageColumns, s.opts.table)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	dir := "DESC"
	if !desc {
		dir = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %[1]s %[2]s, id %[2]s", sortCol, dir)

	limit := opts.Limit
	if limit > 0 {
		// Fetch one extra row to detect another page.
		query += fmt.Sprintf(" LIMIT %d", limit+1)
	}
	if opts.StartAfter == "" && opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find: %w", err)
	}
	defer rows.Close()

	list := &store.MessageList{Total: -1}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		list.Messages = append(list.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: find: %w", err)
	}
	if limit > 0 && len(list.Messages) > limit {
		list.Messages = list.Messages[:limit]
		list.HasMore = true
		list.NextCursor = list.Messages[limit-1].GetID()
	}
	return list, nil
}

// Count returns the number of messages matching all filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return 0, err
	}
	var args []any
	where, err := buildWhere(filters, &args)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.opts.table)
	if where != "" {
		query += " WHERE " + where
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return count, nil
}

func sortClause(opts store.ListOptions) (col string, desc bool, err error) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = store.FieldSentAt
	}
	col, ok := columnFor[sortBy]
	if !ok {
		return "", false, fmt.Errorf("%w: unknown sort field %q", store.ErrFilterInvalid, sortBy)
	}
	return col, opts.SortOrder != store.SortAsc, nil
}
