package converter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gauss-project/gauss/converter"
	"github.com/gauss-project/gauss/value"
)

func TestPgNumericToCHDecimalRescales(t *testing.T) {
	builtins := converter.Builtins()
	c := builtins["pg-numeric-to-ch-decimal"]

	var unscaled [16]byte
	unscaled[15] = 0xFF // arbitrary nonzero magnitude
	in := value.DecimalValue(value.Decimal{Unscaled: unscaled, Scale: 8})

	out := c.Convert(in)
	assert.Equal(t, uint8(8), out.Dec.Scale)
	assert.Equal(t, unscaled, out.Dec.Unscaled)
}

func TestPgNumericToCHDecimalNonDecimalIsNull(t *testing.T) {
	c := converter.Builtins()["pg-numeric-to-ch-decimal"]
	out := c.Convert(value.Int64(42))
	assert.True(t, out.IsNull())
}

func TestPassthroughIsIdentity(t *testing.T) {
	v := value.String([]byte("BTC"))
	assert.Equal(t, v, converter.Passthrough.Convert(v))
}
