package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlescan/pkg/model"
)

// registeringRule tries to mutate its registry from inside a scan
type registeringRule struct {
	reg *Registry
	err error
}

func (r *registeringRule) Name() string      { return "registering" }
func (r *registeringRule) WindowLength() int { return 1 }

func (r *registeringRule) Evaluate(w Window) (Match, bool) {
	r.err = r.reg.Register(NewHammer())
	return none()
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewHangingMan()))

	err := reg.Register(&fixedRule{name: "empty", n: 0})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	err = reg.Register(&fixedRule{name: "negative", n: -2})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	err = reg.Register(NewHangingMan())
	assert.ErrorIs(t, err, ErrDuplicateRule)

	assert.Equal(t, 1, reg.Len())
	assert.Panics(t, func() { reg.MustRegister(&fixedRule{name: "zero"}) })
}

func TestRegistryLockedDuringScan(t *testing.T) {
	reg := NewRegistry()
	rule := &registeringRule{reg: reg}
	require.NoError(t, reg.Register(rule))

	_, err := Scan(make([]model.AnnotatedCandle, 1), reg)
	require.NoError(t, err)
	assert.ErrorIs(t, rule.err, ErrRegistryInUse)

	// released after the scan
	assert.NoError(t, reg.Register(NewHammer()))
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	names := reg.Names()

	require.Len(t, names, len(builtin))
	assert.Equal(t, []string{"advance block", "hanging man", "homing pigeon", "tri star"}, names[:4])

	for _, info := range reg.Info() {
		assert.GreaterOrEqual(t, info.WindowLength, 1, info.Name)
		assert.LessOrEqual(t, info.WindowLength, 3, info.Name)
	}

	rule, err := reg.Get("homing pigeon")
	require.NoError(t, err)
	assert.Equal(t, 2, rule.WindowLength())

	_, err = reg.Get("abandoned baby")
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestDefaultRegistryBodyField(t *testing.T) {
	reg := DefaultRegistry(WithBodyField(BodyHeikinAshi))
	rule, err := reg.Get("hanging man")
	require.NoError(t, err)
	assert.Equal(t, BodyHeikinAshi, rule.(*HangingMan).Body)
}

func TestRegistrySubset(t *testing.T) {
	reg := DefaultRegistry()

	sub, err := reg.Subset("tri star", "advance block")
	require.NoError(t, err)
	assert.Equal(t, []string{"advance block", "tri star"}, sub.Names())

	all, err := reg.Subset()
	require.NoError(t, err)
	assert.Equal(t, reg.Names(), all.Names())

	_, err = reg.Subset("tri star", "nope")
	assert.ErrorIs(t, err, ErrUnknownRule)
}
