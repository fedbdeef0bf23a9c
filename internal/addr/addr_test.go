package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	r, err := Parse("terraform_data.db_business_validations")
	require.NoError(t, err)
	assert.Equal(t, Resource{Type: "terraform_data", Name: "db_business_validations"}, r)
	assert.Equal(t, "terraform_data.db_business_validations", r.String())
}

func TestParseRejectsMalformedAddresses(t *testing.T) {
	for _, bad := range []string{"", "noseparator", ".name", "type."} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseKeepsDotsInLocalName(t *testing.T) {
	r, err := Parse("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, Resource{Type: "a", Name: "b.c"}, r)
}

func TestLess(t *testing.T) {
	a := Resource{Type: "aws_db_instance", Name: "main"}
	b := Resource{Type: "aws_vpc", Name: "main"}
	c := Resource{Type: "aws_vpc", Name: "peer"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}
