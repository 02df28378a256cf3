package jobs

import (
	"context"

	"github.com/kochabx/membership/core/auth/session"
	"github.com/kochabx/membership/log"
)

// PurgeExpiredSessions deletes session rows whose refresh window has
// closed. Expired rows are inert, the purge only keeps the table small.
func PurgeExpiredSessions(sessions *session.Manager) Job {
	return Job{
		Name: "purge-expired-sessions",
		Spec: "@every 1h",
		Run: func(ctx context.Context) error {
			purged, err := sessions.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if purged > 0 {
				log.Info().Int64("purged", purged).Msg("expired sessions purged")
			}
			return nil
		},
	}
}
