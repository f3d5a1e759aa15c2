package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorder_DrainEmpties(t *testing.T) {
	r := NewRecorder(0)
	r.Success("Cart cleared")
	r.Error("Login failed")

	got := r.Drain()
	assert.Len(t, got, 2)
	assert.Equal(t, LevelSuccess, got[0].Level)
	assert.Equal(t, "Login failed", got[1].Message)
	assert.Empty(t, r.Drain())
}

func TestRecorder_CapKeepsNewest(t *testing.T) {
	r := NewRecorder(2)
	r.Info("a")
	r.Info("b")
	r.Info("c")
	assert.Equal(t, []string{"b", "c"}, r.Messages())
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewRecorder(0), NewRecorder(0)
	core, logs := observer.New(zap.InfoLevel)
	n := Multi(a, b, Log{L: zap.New(core)}, OrNop(nil))
	n.Success("ok")
	n.Error("bad")

	assert.Equal(t, []string{"ok", "bad"}, a.Messages())
	assert.Equal(t, []string{"ok", "bad"}, b.Messages())
	assert.Equal(t, 2, logs.FilterMessage("notice").Len())
}
