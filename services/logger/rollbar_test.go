package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())

	usr := user.User{ID: "u1", Name: "Anne", Email: "anne@parish.org"}
	logger.Error("digest job failed", errors.New("boom"), map[string]interface{}{"parish_id": "p1"}, usr)

	out := buf.String()
	assert.Contains(t, out, "[ERROR] digest job failed")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "parish_id:p1")
	assert.NotContains(t, out, "anne@parish.org")
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{}
	usr := user.User{ID: "u1"}
	err := errors.New("boom")

	args := logger.prepare("msg", []interface{}{usr, err, usr})
	assert.Equal(t, []interface{}{"msg", err}, args)
}
