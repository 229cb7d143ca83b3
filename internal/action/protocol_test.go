package action_test

import (
	"strings"
	"testing"

	"github.com/unclebandit/campaignplanner-backend/internal/action"
	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
)

// lookup is a handwritten EventLookup over a fixed id set.
type lookup map[string]bool

func (l lookup) Has(id string) bool { return l[id] }

func TestParseDelete(t *testing.T) {
	cmd := action.Parse(`{"action":"delete","eventId":"e1"}`)
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if cmd.Kind != action.KindDelete || cmd.EventID != "e1" {
		t.Errorf("unexpected command: %+v", cmd)
	}
}

func TestParseProseReturnsNil(t *testing.T) {
	replies := []string{
		"Sure! Your September calendar has 3 campaigns scheduled.",
		"",
		"{not json at all",
		`{"action":"explode"}`,
		`{"action":"create"}`, // create without an event payload
	}
	for _, reply := range replies {
		if cmd := action.Parse(reply); cmd != nil {
			t.Errorf("Parse(%q) = %+v, want nil (prose)", reply, cmd)
		}
	}
}

func TestParseExtractsEmbeddedObject(t *testing.T) {
	reply := "Done, here you go: {\"action\":\"delete\",\"eventId\":\"e9\"} let me know!"
	cmd := action.Parse(reply)
	if cmd == nil || cmd.EventID != "e9" {
		t.Fatalf("expected embedded object to parse, got %+v", cmd)
	}
}

func TestRoundTripAllKinds(t *testing.T) {
	commands := []*action.Command{
		{Kind: action.KindDelete, EventID: "e1"},
		{Kind: action.KindUpdate, EventID: "e2", Updates: map[string]string{"title": "New", "date": "2026-01-05"}},
		{Kind: action.KindCreate, Event: action.EventSpec{Date: "2026-02-14", Title: "Valentines", Content: "promo"}},
		{Kind: action.KindDeleteAll},
	}
	for _, cmd := range commands {
		s, err := action.Stringify(cmd)
		if err != nil {
			t.Fatal(err)
		}
		back := action.Parse(s)
		if back == nil {
			t.Fatalf("round trip lost command %+v (wire %q)", cmd, s)
		}
		if back.Kind != cmd.Kind || back.EventID != cmd.EventID || back.Event != cmd.Event {
			t.Errorf("round trip mismatch: %+v vs %+v", cmd, back)
		}
		if len(back.Updates) != len(cmd.Updates) {
			t.Errorf("updates lost in round trip: %+v vs %+v", cmd.Updates, back.Updates)
		}
	}
}

func TestValidateDeleteUnknownID(t *testing.T) {
	cmd := action.Parse(`{"action":"delete","eventId":"e1"}`)
	err := action.Validate(cmd, lookup{})
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if !appErrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestValidateDeleteKnownID(t *testing.T) {
	cmd := action.Parse(`{"action":"delete","eventId":"e1"}`)
	if err := action.Validate(cmd, lookup{"e1": true}); err != nil {
		t.Fatal(err)
	}
}

func TestValidateCreate(t *testing.T) {
	cases := []struct {
		name    string
		cmd     *action.Command
		wantErr bool
	}{
		{"valid", &action.Command{Kind: action.KindCreate, Event: action.EventSpec{Date: "2026-09-01", Title: "ok"}}, false},
		{"bad date", &action.Command{Kind: action.KindCreate, Event: action.EventSpec{Date: "next tuesday", Title: "ok"}}, true},
		{"empty title", &action.Command{Kind: action.KindCreate, Event: action.EventSpec{Date: "2026-09-01", Title: "  "}}, true},
	}
	for _, tc := range cases {
		err := action.Validate(tc.cmd, lookup{})
		if tc.wantErr && !appErrors.IsValidation(err) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestValidateUpdateFields(t *testing.T) {
	cmd := &action.Command{Kind: action.KindUpdate, EventID: "e1", Updates: map[string]string{"date": "not-a-date"}}
	if err := action.Validate(cmd, lookup{"e1": true}); !appErrors.IsValidation(err) {
		t.Errorf("expected ValidationError for bad date, got %v", err)
	}

	cmd = &action.Command{Kind: action.KindUpdate, EventID: "e1", Updates: map[string]string{"campaign_type": "Nope"}}
	if err := action.Validate(cmd, lookup{"e1": true}); !appErrors.IsValidation(err) {
		t.Errorf("expected ValidationError for unknown type, got %v", err)
	}
}

func TestFormatMessage(t *testing.T) {
	escaped := action.FormatMessage(`Line1\nLine2`)
	if len(strings.Split(escaped, "\n")) != 2 {
		t.Errorf("literal backslash-n should become a line break, got %q", escaped)
	}

	real := action.FormatMessage("Line3\nLine4")
	if len(strings.Split(real, "\n")) != 2 {
		t.Errorf("actual newline should survive as a line break, got %q", real)
	}
}
