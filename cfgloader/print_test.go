package cfgloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskStruct(t *testing.T) {
	type inner struct {
		Token string `mask:"true"`
		Host  string
	}
	type config struct {
		Password string `mask:"true"`
		User     string
		Inner    *inner
	}

	masked, ok := maskStruct(config{
		Password: "hunter2",
		User:     "admin",
		Inner:    &inner{Token: "abc", Host: "db"},
	}).(config)

	assert.True(t, ok)
	assert.Equal(t, "*******", masked.Password)
	assert.Equal(t, "admin", masked.User)
	assert.Equal(t, "***", masked.Inner.Token)
	assert.Equal(t, "db", masked.Inner.Host)
}
