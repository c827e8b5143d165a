// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Setenv("VOXDESK_TEST_STR", "from-env")
	assert.Equal(t, "from-env", ParseString("VOXDESK_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", ParseString("VOXDESK_TEST_STR_MISSING", "fallback"))

	t.Setenv("VOXDESK_TEST_EMPTY", "")
	assert.Equal(t, "fallback", ParseString("VOXDESK_TEST_EMPTY", "fallback"))
}

func TestParseInt(t *testing.T) {
	t.Setenv("VOXDESK_TEST_INT", "42")
	assert.Equal(t, 42, ParseInt("VOXDESK_TEST_INT", 7))

	t.Setenv("VOXDESK_TEST_INT_BAD", "not-a-number")
	assert.Equal(t, 7, ParseInt("VOXDESK_TEST_INT_BAD", 7))

	assert.Equal(t, 7, ParseInt("VOXDESK_TEST_INT_MISSING", 7))
}

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"true": true, "1": true, "yes": true, "TRUE": true,
		"false": false, "0": false, "no": false,
	}
	for raw, want := range cases {
		t.Setenv("VOXDESK_TEST_BOOL", raw)
		assert.Equal(t, want, ParseBool("VOXDESK_TEST_BOOL", !want), "raw=%q", raw)
	}

	t.Setenv("VOXDESK_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("VOXDESK_TEST_BOOL", true))
}

func TestParseDuration(t *testing.T) {
	t.Setenv("VOXDESK_TEST_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, ParseDuration("VOXDESK_TEST_DUR", time.Second))

	t.Setenv("VOXDESK_TEST_DUR_BAD", "soon")
	assert.Equal(t, time.Second, ParseDuration("VOXDESK_TEST_DUR_BAD", time.Second))
}

func TestParseFloat(t *testing.T) {
	t.Setenv("VOXDESK_TEST_FLOAT", "0.85")
	assert.InDelta(t, 0.85, ParseFloat("VOXDESK_TEST_FLOAT", 0.5), 1e-9)

	t.Setenv("VOXDESK_TEST_FLOAT_BAD", "high")
	assert.InDelta(t, 0.5, ParseFloat("VOXDESK_TEST_FLOAT_BAD", 0.5), 1e-9)
}
