package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_passwordPolicy(t *testing.T) {
	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abc 1234!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdefg1", want: pwdComplexityTag},
		{name: "no upper", pwd: "abcdef1!", want: pwdComplexityTag},
		{name: "similar to name", pwd: "Joseph1!", attrs: []string{"Joseph"}, want: pwdAttrSimTag},
		{name: "similar to email", pwd: "Mary.Magd1", attrs: []string{"", "marymagd@parish.org"}, want: pwdAttrSimTag},
		{name: "valid", pwd: "Tr3s-B!en", attrs: []string{"Joseph", "joseph@parish.org"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, passwordPolicy(tt.pwd, tt.attrs...))
		})
	}
}
