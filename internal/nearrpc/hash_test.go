package nearrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalHashIgnoresKeyOrder(t *testing.T) {
	a := []byte(`{"jsonrpc":"2.0","id":1,"method":"block","params":{"finality":"final"}}`)
	b := []byte(`{"params":{"finality":"final"},"method":"block","id":1,"jsonrpc":"2.0"}`)

	ha, err := CanonicalHash(a)
	require.NoError(t, err)
	hb, err := CanonicalHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestCanonicalHashDistinguishesContent(t *testing.T) {
	a := []byte(`{"method":"block","params":{"block_id":100}}`)
	b := []byte(`{"method":"block","params":{"block_id":101}}`)

	ha, err := CanonicalHash(a)
	require.NoError(t, err)
	hb, err := CanonicalHash(b)
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb)
}

func TestCanonicalHashRejectsGarbage(t *testing.T) {
	_, err := CanonicalHash([]byte(`{not json`))
	assert.Error(t, err)
}
