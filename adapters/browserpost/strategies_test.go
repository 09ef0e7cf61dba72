package browserpost

import "testing"

func TestLoggedIn(t *testing.T) {
	tests := []struct {
		name    string
		signals loginSignals
		want    bool
	}{
		{
			name:    "logout link wins",
			signals: loginSignals{URL: "https://site/login", HasLogoutLink: true, HasPasswordField: true},
			want:    true,
		},
		{
			name:    "account marker wins",
			signals: loginSignals{URL: "https://site/home", HasAccountMarker: true},
			want:    true,
		},
		{
			name:    "off login page without password form",
			signals: loginSignals{URL: "https://site/dashboard"},
			want:    true,
		},
		{
			name:    "still on login page",
			signals: loginSignals{URL: "https://site/login", HasPasswordField: true},
			want:    false,
		},
		{
			name:    "password form reappeared elsewhere",
			signals: loginSignals{URL: "https://site/home", HasPasswordField: true},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loggedIn(tt.signals); got != tt.want {
				t.Errorf("loggedIn(%+v) = %t, want %t", tt.signals, got, tt.want)
			}
		})
	}
}

func TestJSString(t *testing.T) {
	got := jsString(`pass"word` + "\n")
	want := `"pass\"word\n"`
	if got != want {
		t.Errorf("jsString = %s, want %s", got, want)
	}
}
