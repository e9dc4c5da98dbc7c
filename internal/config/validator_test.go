package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateBaseURL(t *testing.T) {
	v := NewValidator()

	for _, ok := range []string{
		"ws://localhost:8000/api/v1",
		"wss://hive.example.com/api/v1",
		"http://localhost:8000",
		"https://hive.example.com",
	} {
		assert.NoError(t, v.ValidateBaseURL(ok), ok)
	}

	for _, bad := range []string{
		"",
		"localhost:8000",
		"ftp://hive.example.com",
		"ws:///api/v1",
		"wss://hive.example.com/api/v1?token=abc",
	} {
		assert.Error(t, v.ValidateBaseURL(bad), bad)
	}
}

func TestValidateToken(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateToken("eyJhbGciOiJIUzI1NiJ9.e30.sig"))
	assert.Error(t, v.ValidateToken(""))
	assert.Error(t, v.ValidateToken("two words"))
}

func TestValidateDuration(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateDuration("write_timeout", time.Second))
	assert.Error(t, v.ValidateDuration("write_timeout", 0))
	assert.Error(t, v.ValidateDuration("write_timeout", -time.Second))
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("trace"))
	assert.Error(t, v.ValidateLogLevel(""))
}
