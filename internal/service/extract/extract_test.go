package extract

import "testing"

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		title   string
		snippet string
		want    Profile
	}{
		"title only": {
			title: "Jane Doe - CEO - Acme Ltd",
			want:  Profile{Shape: TitleOnly, Name: "Jane Doe", Position: "CEO", Company: "Acme Ltd"},
		},
		"snippet only when title has one part": {
			title:   "Jane Doe - LinkedIn",
			snippet: "Brighton · CEO · Acme Ltd",
			want:    Profile{Shape: SnippetOnly, Position: "CEO", Company: "Acme Ltd"},
		},
		"both signals": {
			title:   "Jane Doe - Managing Director | LinkedIn",
			snippet: "Brighton · Managing Director · Acme Ltd",
			want:    Profile{Shape: BothSignals, Name: "Jane Doe", Position: "Managing Director", Company: "Acme Ltd"},
		},
		"both signals with three part title prefers snippet": {
			title:   "Jane Doe - Owner - Acme Trading",
			snippet: "Hove · Founder · Acme Ltd",
			want:    Profile{Shape: BothSignals, Name: "Jane Doe", Position: "Founder", Company: "Acme Ltd"},
		},
		"long snippet": {
			title:   "Jane Doe - Acme",
			snippet: "Brighton · Director · Sales · Acme Ltd",
			want:    Profile{Shape: SnippetOnly, Position: "Director", Company: "Acme Ltd"},
		},
		"two part snippet falls back to title": {
			title:   "John Smith - Manager - Acme Ltd",
			snippet: "Brighton · Acme Ltd",
			want:    Profile{Shape: TitleOnly, Name: "John Smith", Position: "Manager", Company: "Acme Ltd"},
		},
		"unresolved": {
			title:   "John Smith - Acme Ltd",
			snippet: "",
			want:    Profile{Shape: Unresolved},
		},
		"four part title unresolved": {
			title: "John Smith - Manager - Acme - Brighton",
			want:  Profile{Shape: Unresolved},
		},
		"suffix only stripped at end": {
			title: "Head of Sales - LinkedIn Learning - Acme Ltd",
			want:  Profile{Shape: TitleOnly, Name: "Head of Sales", Position: "LinkedIn Learning", Company: "Acme Ltd"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := Classify(tt.title, tt.snippet)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestProfileOK(t *testing.T) {
	if (Profile{Shape: Unresolved}).OK() {
		t.Fatalf("unresolved profile must not be OK")
	}
	if !(Profile{Shape: SnippetOnly, Company: "Acme"}).OK() {
		t.Fatalf("profile with company must be OK")
	}
	if (Classify("Jane - CEO - ", "")).OK() {
		t.Fatalf("empty company segment must not be OK")
	}
}

func TestShapeString(t *testing.T) {
	if BothSignals.String() != "both_signals" || Unresolved.String() != "unresolved" {
		t.Fatalf("unexpected shape names")
	}
}
