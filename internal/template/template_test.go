package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certpass/internal/fingerprint"
)

func TestSubstitute(t *testing.T) {
	data := Data{"name": "MEHUL KHARE", "hash": "abc123", "teamId": "1"}

	t.Run("known keys", func(t *testing.T) {
		got := Substitute("This certifies {{name}} (team {{teamId}})", data)
		assert.Equal(t, "This certifies MEHUL KHARE (team 1)", got)
	})

	t.Run("whitespace inside token", func(t *testing.T) {
		assert.Equal(t, "abc123", Substitute("{{ hash }}", data))
	})

	t.Run("unknown key resolves empty", func(t *testing.T) {
		assert.Equal(t, "Hello ", Substitute("Hello {{nope}}", data))
	})

	t.Run("no tokens passes through", func(t *testing.T) {
		assert.Equal(t, "plain text", Substitute("plain text", data))
	})

	t.Run("repeated tokens", func(t *testing.T) {
		assert.Equal(t, "abc123/abc123", Substitute("{{hash}}/{{hash}}", data))
	})
}

func TestSubstitutionData(t *testing.T) {
	r := fingerprint.Recipient{
		Name:               "MEHUL KHARE",
		Email:              "mehul@example.com",
		RegistrationNumber: "24BAI10631",
		TeamID:             "1",
		CustomFields:       map[string]string{"college": "VIT Bhopal", "name": "shadow attempt"},
	}

	data := SubstitutionData(r, "abc123", "Linpack 2025", "2025-03-14")

	assert.Equal(t, "MEHUL KHARE", data["name"], "built-ins win over custom fields")
	assert.Equal(t, "abc123", data["hash"])
	assert.Equal(t, "Linpack 2025", data["eventName"])
	assert.Equal(t, "2025-03-14", data["date"])
	assert.Equal(t, "VIT Bhopal", data["college"])
}

func TestTemplateValidate(t *testing.T) {
	valid := Template{
		Width:  800,
		Height: 600,
		Elements: []Element{
			{Kind: KindText, X: 10, Y: 10, Width: 300, Height: 40, Text: &TextProps{Content: "{{name}}"}},
			{Kind: KindQRCode, X: 650, Y: 450, Width: 120, Height: 120},
			{Kind: KindShape, X: 0, Y: 0, Width: 800, Height: 4},
		},
	}
	require.NoError(t, valid.Validate())

	t.Run("zero dimensions", func(t *testing.T) {
		bad := Template{Width: 0, Height: 600}
		assert.Error(t, bad.Validate())
	})

	t.Run("unknown kind", func(t *testing.T) {
		bad := valid
		bad.Elements = []Element{{Kind: Kind("video")}}
		assert.Error(t, bad.Validate())
	})

	t.Run("text without props", func(t *testing.T) {
		bad := valid
		bad.Elements = []Element{{Kind: KindText}}
		assert.Error(t, bad.Validate())
	})

	t.Run("image without props", func(t *testing.T) {
		bad := valid
		bad.Elements = []Element{{Kind: KindImage}}
		assert.Error(t, bad.Validate())
	})
}
