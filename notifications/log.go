package notifications

import (
	"context"

	"github.com/rs/zerolog"
)

type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	names := make([]string, 0, len(n.Recipients))
	for _, r := range n.Recipients {
		names = append(names, r.Name)
	}
	l.log.Info().
		Uint("appointment_id", n.AppointmentID).
		Str("action", string(n.Action)).
		Str("actor_type", string(n.ActorType)).
		Str("initiator", n.Initiator).
		Strs("recipients", names).
		Msg(n.Message())
	return nil
}
