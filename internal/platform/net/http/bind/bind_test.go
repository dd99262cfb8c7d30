package bind

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
)

type windowReq struct {
	Participant string `json:"participant" validate:"required,min=2"`
	Minutes     int    `json:"minutes" validate:"min=1"`
}

func post(body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	}
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestParseJSON(t *testing.T) {
	cases := []struct {
		name string
		req  *http.Request
		opt  []JSONOptions
		code perr.ErrorCode
	}{
		{"ok", post(`{"participant":"P001","minutes":5}`), nil, 0},
		{"empty post", post(""), nil, perr.ErrorCodeJSON},
		{"empty get", httptest.NewRequest(http.MethodGet, "/", http.NoBody), nil, 0},
		{"empty allowed", post(""), []JSONOptions{{AllowEmptyBody: true}}, 0},
		{"broken", post(`{`), nil, perr.ErrorCodeJSON},
		{"unknown field", post(`{"participant":"P001","minutes":5,"x":1}`), nil, perr.ErrorCodeJSON},
		{"unknown allowed", post(`{"participant":"P001","minutes":5,"x":1}`), []JSONOptions{{}}, 0},
		{"trailing", post(`{"participant":"P001","minutes":5} {}`), nil, perr.ErrorCodeJSON},
		{"too large", post(`{"participant":"P001","minutes":5}`), []JSONOptions{{MaxBytes: 8}}, perr.ErrorCodeJSON},
		{"no limit", post(`{"participant":"P001","minutes":5}`), []JSONOptions{{MaxBytes: 0}}, 0},
		{"invalid", post(`{"participant":"P","minutes":0}`), nil, perr.ErrorCodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON[windowReq](tc.req, tc.opt...)
			if tc.code == 0 {
				if err != nil {
					t.Fatalf("unexpected: %v", err)
				}
				return
			}
			if got := perr.CodeOf(err); got != tc.code {
				t.Fatalf("code = %v, want %v (%v)", got, tc.code, err)
			}
		})
	}
}

func TestParseJSON_Decodes(t *testing.T) {
	got, err := ParseJSON[windowReq](post(`{"participant":"P001","minutes":5}`))
	if err != nil || got.Participant != "P001" || got.Minutes != 5 {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestParseJSON_NonStructIsMisuse(t *testing.T) {
	if _, err := ParseJSON[int](post(`5`)); perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
}

func TestStruct_Field(t *testing.T) {
	err := Struct(windowReq{Participant: "P001"})
	e, ok := perr.As(err)
	if !ok || e.Code() != perr.ErrorCodeValidation || e.Field() != "minutes" {
		t.Fatalf("got %v", err)
	}
	if err := Struct(windowReq{Participant: "P001", Minutes: 1}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestFieldNames(t *testing.T) {
	type s struct {
		Tagged int `json:"freq,omitempty" validate:"min=1"`
		Hidden int `json:"-" validate:"min=1"`
		Plain  int `validate:"min=1"`
	}
	var verrs FieldErrors
	if !errors.As(Get().Validator.Struct(s{}), &verrs) {
		t.Fatal("want validation errors")
	}
	var names []string
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	if strings.Join(names, ",") != "freq,Hidden,Plain" {
		t.Fatalf("names = %v", names)
	}
}

func TestMessages(t *testing.T) {
	type s struct {
		Count int    `json:"count" validate:"max=5"`
		Floor int    `json:"floor" validate:"min=2"`
		Freq  string `json:"freq" validate:"duration"`
	}
	cases := []struct {
		in    s
		field string
		msg   string
	}{
		{s{Count: 6, Floor: 2, Freq: "1m"}, "count", "count must be at most 5"},
		{s{Count: 1, Floor: 1, Freq: "1m"}, "floor", "floor must be at least 2"},
		{s{Count: 1, Floor: 2, Freq: "soon"}, "freq", "freq must be a positive duration such as 1m or 30s"},
		{s{Count: 1, Floor: 2, Freq: "0s"}, "freq", "freq must be a positive duration such as 1m or 30s"},
		{s{Count: 1, Floor: 2, Freq: "-1m"}, "freq", "freq must be a positive duration such as 1m or 30s"},
		{s{Count: 1, Floor: 2}, "freq", "freq must be a positive duration such as 1m or 30s"},
	}
	for _, tc := range cases {
		field, msg := ValidationFieldAndMessage(Get().Validator.Struct(tc.in))
		if field != tc.field || msg != tc.msg {
			t.Errorf("%+v: got %q %q", tc.in, field, msg)
		}
	}
	if err := Get().Validator.Struct(s{Count: 1, Floor: 2, Freq: " 30s "}); err != nil {
		t.Fatalf("padded duration should pass: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	for in, want := range map[string]time.Duration{"30s": 30 * time.Second, " 5m ": 5 * time.Minute, "1h30m\t": 90 * time.Minute} {
		if got, err := ParseDuration(in); err != nil || got != want {
			t.Errorf("ParseDuration(%q) = %s, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "  ", "soon", "0s", "-1m"} {
		if _, err := ParseDuration(in); perr.CodeOf(err) != perr.ErrorCodeValidation {
			t.Errorf("ParseDuration(%q) = %v", in, err)
		}
	}
}

func TestValidationFieldAndMessage_Foreign(t *testing.T) {
	if f, m := ValidationFieldAndMessage(errors.New("boom")); f != "" || m != "boom" {
		t.Fatalf("got %q %q", f, m)
	}
	if f, m := ValidationFieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("nil: got %q %q", f, m)
	}
}

func TestRegister(t *testing.T) {
	if err := RegisterValidation("participant_code", func(fl FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), "P")
	}); err != nil {
		t.Fatal(err)
	}
	RegisterMessage("participant_code", "{0} must start with P")

	type s struct {
		ID string `json:"id" validate:"participant_code"`
	}
	if _, msg := ValidationFieldAndMessage(Get().Validator.Struct(s{ID: "X1"})); msg != "id must start with P" {
		t.Fatalf("msg = %q", msg)
	}
	if err := Get().Validator.Struct(s{ID: "P1"}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}
