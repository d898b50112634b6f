package internal

import (
	"context"
	"strconv"
)

// LogAction appends to the audit trail. Failures are ignored; the audit
// row never decides the outcome of a request.
func (s *PgStore) LogAction(ctx context.Context, actorID *int, action, details string) {
	_, _ = qExec(ctx, s.db, psql.Insert("audit_logs").
		Columns("actor_id", "action", "details").
		Values(actorID, action, details))
}

func idDetail(key string, id int) string {
	return key + "=" + strconv.Itoa(id)
}
