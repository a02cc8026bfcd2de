package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCPF(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Formatted valid", "529.982.247-25", true},
		{"Digits valid", "52998224725", true},
		{"Repeated digits", "111.111.111-11", false},
		{"Too short", "123", false},
		{"Too long", "529982247251", false},
		{"Wrong first digit", "529.982.247-35", false},
		{"Wrong second digit", "529.982.247-26", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCPF(tt.input))
		})
	}
}

func TestValidCPF_RepeatedDigitsAlwaysRejected(t *testing.T) {
	for d := 0; d <= 9; d++ {
		cpf := strings.Repeat(fmt.Sprint(d), 11)
		assert.False(t, ValidCPF(cpf), cpf)
	}
}

func TestValidCPF_OnlyMatchingCheckDigitsAccepted(t *testing.T) {
	base := "529982247"
	accepted := 0
	for d1 := 0; d1 <= 9; d1++ {
		for d2 := 0; d2 <= 9; d2++ {
			if ValidCPF(fmt.Sprintf("%s%d%d", base, d1, d2)) {
				accepted++
				assert.Equal(t, 2, d1)
				assert.Equal(t, 5, d2)
			}
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestParseCPF(t *testing.T) {
	cpf, err := ParseCPF("529.982.247-25")
	assert.NoError(t, err)
	assert.Equal(t, "52998224725", cpf)

	_, err = ParseCPF("123")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "cpf", verr.Field)
}

func TestFormatAndMaskCPF(t *testing.T) {
	assert.Equal(t, "529.982.247-25", FormatCPF("52998224725"))
	assert.Equal(t, "abc", FormatCPF("abc"))
	assert.Equal(t, "***.***.***-25", MaskCPF("529.982.247-25"))
	assert.Equal(t, "***", MaskCPF(""))
}
