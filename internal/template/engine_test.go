package template

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEngine_Validate(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name    string
		fields  Fields
		wantErr string
	}{
		{
			name: "valid template",
			fields: Fields{
				Subject:   "Hello {{.FirstName}}",
				Preheader: "Your {{.Product}} is waiting",
				Body:      "Hi {{.FirstName}},\n\n{{if .Offer}}Use {{.Offer}}{{end}}",
			},
		},
		{
			name:    "invalid subject syntax",
			fields:  Fields{Subject: "Hello {{.FirstName", Body: "Welcome"},
			wantErr: "invalid subject template",
		},
		{
			name:    "invalid preheader syntax",
			fields:  Fields{Subject: "Hello", Preheader: "{{ if }}"},
			wantErr: "invalid preheader template",
		},
		{
			name:    "invalid body syntax",
			fields:  Fields{Subject: "Hello", Body: "{{if .Offer}}unterminated"},
			wantErr: "invalid body template",
		},
		{
			name:   "plain text without merge fields",
			fields: Fields{Subject: "Hello", Body: "No fields here."},
		},
		{
			name: "empty template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Validate(tt.fields)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_Render(t *testing.T) {
	engine := NewEngine()

	fields := Fields{
		Subject:   "{{.FirstName}}, your webinar seat is saved",
		Preheader: "Starts {{.Date}}",
		Body:      "Hi {{.FirstName}},\n\nSee you on {{.Date}}.{{if .Coupon}} Code: {{.Coupon}}{{end}}",
	}

	got, err := engine.Render(fields, map[string]string{
		"FirstName": "Ada",
		"Date":      "March 3",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := &RenderResult{
		Subject:   "Ada, your webinar seat is saved",
		Preheader: "Starts March 3",
		Body:      "Hi Ada,\n\nSee you on March 3.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_RenderMissingKeys(t *testing.T) {
	engine := NewEngine()

	got, err := engine.Render(Fields{Subject: "Hi {{.FirstName}}!"}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got.Subject != "Hi !" {
		t.Errorf("Subject = %q, want %q", got.Subject, "Hi !")
	}
	if got.Body != "" || got.Preheader != "" {
		t.Errorf("empty parts rendered as %q / %q", got.Preheader, got.Body)
	}
}

func TestEngine_RenderInvalid(t *testing.T) {
	engine := NewEngine()

	if _, err := engine.Render(Fields{Subject: "ok", Body: "{{.Broken"}, nil); err == nil {
		t.Error("expected error for invalid body")
	}
}

func TestEngine_Variables(t *testing.T) {
	engine := NewEngine()

	got := engine.Variables(Fields{
		Subject:   "{{.FirstName}} {{.LastName}}",
		Preheader: "{{.FirstName}}",
		Body:      "{{if .Coupon}}{{.Coupon}}{{else}}{{.Fallback}}{{end}} {{.Broken",
	})
	// body is unparsable so only subject and preheader contribute
	want := []string{"FirstName", "LastName"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Variables() mismatch (-want +got):\n%s", diff)
	}

	got = engine.Variables(Fields{Body: "{{if .Coupon}}{{.Coupon}}{{else}}{{.Fallback}}{{end}}"})
	want = []string{"Coupon", "Fallback"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Variables() mismatch (-want +got):\n%s", diff)
	}
}
