package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/civicflow/notifier/pkg/logger"
)

func TestAttrConstructors(t *testing.T) {
	t.Parallel()

	t.Run("error attr", func(t *testing.T) {
		t.Parallel()

		err := errors.New("boom")
		attr := logger.Error(err)
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, err, attr.Value.Any())

		assert.Equal(t, slog.Attr{}, logger.Error(nil))
	})

	t.Run("domain identifiers", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "user_id", logger.UserID("u1").Key)
		assert.Equal(t, "rule_id", logger.RuleID("r1").Key)
		assert.Equal(t, "template_id", logger.TemplateID("t1").Key)
		assert.Equal(t, "entity_id", logger.EntityID("c1").Key)
		assert.Equal(t, "event_type", logger.EventType("resolved").Key)
		assert.Equal(t, "channel", logger.Channel("email").Key)
		assert.Equal(t, "retry_count", logger.RetryCount(2).Key)
		assert.Equal(t, int64(2), logger.RetryCount(2).Value.Int64())
	})

	t.Run("duration and component", func(t *testing.T) {
		t.Parallel()

		attr := logger.Duration(time.Second)
		assert.Equal(t, "duration", attr.Key)
		assert.Equal(t, time.Second, attr.Value.Duration())

		assert.Equal(t, "component", logger.Component("dispatch").Key)
	})

	t.Run("nil ids collapse to empty attr", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, slog.Attr{}, logger.NotificationID(nil))
		assert.Equal(t, slog.Attr{}, logger.RequestID(nil))
	})
}
