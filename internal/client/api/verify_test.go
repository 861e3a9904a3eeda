package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVerifyResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *VerifyResult
		ok   bool
	}{
		{
			name: "nested user",
			raw:  `{"token":"jwt","user":{"id":"u1","email":"a@x.com","name":"Ada","onboardingDone":true}}`,
			want: &VerifyResult{Token: "jwt", User: VerifiedUser{ID: "u1", Email: "a@x.com", Name: "Ada", OnboardingDone: true}},
			ok:   true,
		},
		{
			name: "flat user",
			raw:  `{"token":"jwt","userId":"u2","email":"b@x.com"}`,
			want: &VerifyResult{Token: "jwt", User: VerifiedUser{ID: "u2", Email: "b@x.com"}},
			ok:   true,
		},
		{
			name: "wrapped in data",
			raw:  `{"data":{"token":"jwt","user":{"email":"c@x.com"}}}`,
			want: &VerifyResult{Token: "jwt", User: VerifiedUser{Email: "c@x.com"}},
			ok:   true,
		},
		{
			name: "nested wins over flat",
			raw:  `{"token":"jwt","user":{"email":"nested@x.com"},"email":"flat@x.com"}`,
			want: &VerifyResult{Token: "jwt", User: VerifiedUser{Email: "nested@x.com"}},
			ok:   true,
		},
		{
			name: "missing token",
			raw:  `{"user":{"email":"a@x.com"}}`,
			ok:   false,
		},
		{
			name: "missing email",
			raw:  `{"token":"jwt"}`,
			ok:   false,
		},
		{
			name: "not an object",
			raw:  `"jwt"`,
			ok:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseVerifyResponse(json.RawMessage(tc.raw))
			if !tc.ok {
				require.Error(t, err)
				var apiErr *Error
				require.ErrorAs(t, err, &apiErr)
				require.Equal(t, 500, apiErr.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
