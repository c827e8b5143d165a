// SPDX-License-Identifier: MIT

package overlay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdesk/voxdesk/internal/dialog"
	"github.com/voxdesk/voxdesk/internal/intent"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

func TestEligibleGates(t *testing.T) {
	t.Parallel()

	full := New(Config{Enabled: true, CanaryPercent: 100}, stubCompleter{})
	off := New(Config{Enabled: false, CanaryPercent: 100}, stubCompleter{})
	zero := New(Config{Enabled: true, CanaryPercent: 0}, stubCompleter{})

	assert.True(t, full.Eligible("conv-1", dialog.StateStart, intent.None))
	assert.False(t, full.Eligible("conv-1", dialog.StateQualifName, intent.None),
		"only the opening state may be intercepted")
	assert.False(t, full.Eligible("conv-1", dialog.StateStart, intent.IntentCancel),
		"a strong intent always wins")
	assert.False(t, off.Eligible("conv-1", dialog.StateStart, intent.None))
	assert.False(t, zero.Eligible("conv-1", dialog.StateStart, intent.None))
}

func TestCanaryIsStablePerConversation(t *testing.T) {
	t.Parallel()

	o := New(Config{Enabled: true, CanaryPercent: 50}, stubCompleter{})
	first := o.Eligible("conv-stable", dialog.StateStart, intent.None)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, o.Eligible("conv-stable", dialog.StateStart, intent.None))
	}
}

func TestNilCompleterDisables(t *testing.T) {
	t.Parallel()

	o := New(Config{Enabled: true, CanaryPercent: 100}, nil)
	assert.False(t, o.Eligible("conv-1", dialog.StateStart, intent.None))
}

func TestRespondAcceptsValidPayload(t *testing.T) {
	t.Parallel()

	o := New(Config{Enabled: true, CanaryPercent: 100}, stubCompleter{
		reply: `{"response_text":"Bonjour ! Souhaitez-vous prendre un rendez-vous ?","next_mode":"booking","extracted":{"name":"Durand"},"confidence":0.9}`,
	})
	res, ok := o.Respond(context.Background(), "conv-1", "bonjour")
	require.True(t, ok)
	assert.Equal(t, ModeBooking, res.Mode)
	assert.Equal(t, "Durand", res.Extracted["name"])
	assert.Contains(t, res.ResponseText, "rendez-vous")
}

func TestRespondSubstitutesPlaceholder(t *testing.T) {
	t.Parallel()

	o := New(Config{Enabled: true, CanaryPercent: 100}, stubCompleter{
		reply: `{"response_text":"Le cabinet est ouvert {{HORAIRES}}.","next_mode":"faq","confidence":0.85}`,
	})
	res, ok := o.Respond(context.Background(), "conv-1", "vous êtes ouverts quand ?")
	require.True(t, ok)
	assert.NotContains(t, res.ResponseText, "{{")
	assert.Contains(t, res.ResponseText, "lundi au vendredi")
}

func TestRespondRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		reply string
		err   error
	}{
		{"completer error", "", errors.New("timeout")},
		{"markdown fence", "```json\n{\"response_text\":\"x\"}\n```", nil},
		{"multi line", "{\"response_text\":\"a\",\n\"next_mode\":\"faq\",\"confidence\":0.9}", nil},
		{"unknown field", `{"response_text":"a","next_mode":"faq","confidence":0.9,"extra":1}`, nil},
		{"trailing content", `{"response_text":"a","next_mode":"faq","confidence":0.9} et voilà`, nil},
		{"unknown mode", `{"response_text":"a","next_mode":"sales","confidence":0.9}`, nil},
		{"low confidence", `{"response_text":"a","next_mode":"faq","confidence":0.4}`, nil},
		{"empty text", `{"response_text":"  ","next_mode":"faq","confidence":0.9}`, nil},
		{"digits", `{"response_text":"Ouvert de 9h à 18h","next_mode":"faq","confidence":0.9}`, nil},
		{"currency", `{"response_text":"Vingt-cinq euros la séance","next_mode":"faq","confidence":0.9}`, nil},
		{"placeholder outside faq", `{"response_text":"Nous sommes {{ADRESSE}}","next_mode":"booking","confidence":0.9}`, nil},
		{"two placeholders", `{"response_text":"{{ADRESSE}} et {{HORAIRES}}","next_mode":"faq","confidence":0.9}`, nil},
		{"unknown placeholder", `{"response_text":"Appelez le {{TELEPHONE}}","next_mode":"faq","confidence":0.9}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := New(Config{Enabled: true, CanaryPercent: 100}, stubCompleter{reply: tc.reply, err: tc.err})
			_, ok := o.Respond(context.Background(), "conv-1", "bonjour")
			assert.False(t, ok)
		})
	}
}
