package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := map[string]string{
		"Thrift Hub":            "thrift-hub",
		"Vintage Levi's 501":    "vintage-levi-s-501",
		"Café Crème Drop":       "cafe-creme-drop",
		"  --Hostel  Sale!!-- ": "hostel-sale",
		"Señor Niño":            "senor-nino",
		"":                      "",
		"!!!":                   "",
		"Drop #7 / Winter":      "drop-7-winter",
	}
	for in, want := range tests {
		assert.Equal(t, want, Generate(in), "Generate(%q)", in)
	}
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "denim-jacket-2ab3", WithSuffix("Denim Jacket", "2AB3"))
	assert.Equal(t, "denim-jacket", WithSuffix("Denim Jacket", ""))
	assert.Equal(t, "2ab3", WithSuffix("!!", "2AB3"))
}
