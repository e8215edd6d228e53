package validation

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/record"
)

func TestErrorSet_ErrJoinsAllMessages(t *testing.T) {
	var set ErrorSet
	if set.Err() != nil {
		t.Fatal("Empty set must not produce an error")
	}

	set.Add("name is required")
	set.Addf("%s must be a number", "price")

	err := set.Err()
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if err.Error() != "validation failed: name is required; price must be a number" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Messages) != 2 {
		t.Errorf("Expected 2 messages, got %+v", ve)
	}

	set.Reset()
	if !set.Empty() || set.Err() != nil {
		t.Error("Reset must clear the set")
	}
	if len(ve.Messages) != 2 {
		t.Error("Error must keep its own copy of messages")
	}
}

func TestValidators(t *testing.T) {
	digits := regexp.MustCompile(`^\d+$`)

	tests := []struct {
		name  string
		check func(s *ErrorSet)
		fails bool
	}{
		{"presence ok", func(s *ErrorSet) { s.ValidatesPresenceOf("name", record.Text("Ann"), "") }, false},
		{"presence null", func(s *ErrorSet) { s.ValidatesPresenceOf("name", record.Null(), "") }, true},
		{"presence blank", func(s *ErrorSet) { s.ValidatesPresenceOf("name", record.Text("  "), "") }, true},
		{"numeric int", func(s *ErrorSet) { s.ValidatesNumericalityOf("qty", record.Int(3), "") }, false},
		{"numeric text", func(s *ErrorSet) { s.ValidatesNumericalityOf("qty", record.Text("3.5"), "") }, false},
		{"numeric bad", func(s *ErrorSet) { s.ValidatesNumericalityOf("qty", record.Text("three"), "") }, true},
		{"numeric null skipped", func(s *ErrorSet) { s.ValidatesNumericalityOf("qty", record.Null(), "") }, false},
		{"currency symbol", func(s *ErrorSet) { s.ValidatesCurrency("price", record.Text("$1,234.50"), "") }, false},
		{"currency plain", func(s *ErrorSet) { s.ValidatesCurrency("price", record.Text("99.9"), "") }, false},
		{"currency float", func(s *ErrorSet) { s.ValidatesCurrency("price", record.Float(10.25), "") }, false},
		{"currency bad grouping", func(s *ErrorSet) { s.ValidatesCurrency("price", record.Text("1,23.50"), "") }, true},
		{"currency three decimals", func(s *ErrorSet) { s.ValidatesCurrency("price", record.Text("1.505"), "") }, true},
		{"length ok", func(s *ErrorSet) { s.ValidatesLengthOf("code", record.Text("абв"), 1, 3, "") }, false},
		{"length too long", func(s *ErrorSet) { s.ValidatesLengthOf("code", record.Text("abcd"), 1, 3, "") }, true},
		{"length unbounded", func(s *ErrorSet) { s.ValidatesLengthOf("code", record.Text("abcdef"), 2, 0, "") }, false},
		{"format ok", func(s *ErrorSet) { s.ValidatesFormatOf("zip", record.Text("12345"), digits, "") }, false},
		{"format bad", func(s *ErrorSet) { s.ValidatesFormatOf("zip", record.Text("12a45"), digits, "") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set ErrorSet
			tt.check(&set)
			if got := !set.Empty(); got != tt.fails {
				t.Errorf("fails = %v, want %v (messages: %v)", got, tt.fails, set.Messages())
			}
		})
	}
}

func TestValidators_CustomMessage(t *testing.T) {
	var set ErrorSet
	set.ValidatesPresenceOf("name", record.Null(), "Name please")
	set.ValidatesPresenceOf("email", record.Null(), "")

	msgs := set.Messages()
	if len(msgs) != 2 || msgs[0] != "Name please" || msgs[1] != "email is required" {
		t.Errorf("Unexpected messages: %v", msgs)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"unknown type", Rule{Field: "a", Type: "phone"}},
		{"bad regex", Rule{Field: "a", Type: RuleRegex, Param: "(["}},
		{"bad range", Rule{Field: "a", Type: RuleRange, Param: "10"}},
		{"inverted range", Rule{Field: "a", Type: RuleRange, Param: "10-1"}},
		{"no field", Rule{Type: RuleRequired}},
		{"bad on", Rule{Field: "a", Type: RuleRequired, On: "delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile([]Rule{tt.rule}); err == nil {
				t.Errorf("Expected error for %+v", tt.rule)
			}
		})
	}
}

func TestParseRule(t *testing.T) {
	rule, err := ParseRule("age", "range:-10-150")
	if err != nil {
		t.Fatalf("ParseRule failed: %v", err)
	}
	if rule.Type != RuleRange || rule.Param != "-10-150" {
		t.Errorf("Unexpected rule: %+v", rule)
	}

	if _, err := ParseRule("x", "unknown"); err == nil {
		t.Error("Expected error for unknown rule")
	}
}

func TestRuleSet_Apply(t *testing.T) {
	rs, err := Compile([]Rule{
		{Field: "name", Type: RuleRequired},
		{Field: "age", Type: RuleRange, Param: "18-65"},
		{Field: "status", Type: RuleEnum, Param: "active, inactive"},
		{Field: "email", Type: RuleEmail},
		{Field: "code", Type: RuleLength, Param: "2-4", On: OpInsert},
		{Field: "price", Type: RuleCurrency, Message: "bad price"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	tests := []struct {
		name     string
		rec      record.Record
		op       Operation
		expected []string
	}{
		{
			name: "valid insert",
			rec: record.New(record.F("name", "Ann"), record.F("age", 30), record.F("status", "active"),
				record.F("email", "ann@example.com"), record.F("code", "AB"), record.F("price", "$10.00")),
			op: OpInsert,
		},
		{
			name:     "missing required on insert",
			rec:      record.New(record.F("age", 30)),
			op:       OpInsert,
			expected: []string{"name is required"},
		},
		{
			name: "missing required on update is allowed",
			rec:  record.New(record.F("age", 30)),
			op:   OpUpdate,
		},
		{
			name:     "blank required on update",
			rec:      record.New(record.F("name", "")),
			op:       OpUpdate,
			expected: []string{"name is required"},
		},
		{
			name: "all errors collected in rule order",
			rec: record.New(record.F("name", "Ann"), record.F("age", 80), record.F("status", "gone"),
				record.F("email", "nope"), record.F("code", "TOOLONG"), record.F("price", "ten")),
			op: OpInsert,
			expected: []string{
				"age is out of range [18, 65]",
				"status is not in allowed list [active, inactive]",
				"email is not a valid email",
				"code has invalid length",
				"bad price",
			},
		},
		{
			name: "insert-only rule skipped on update",
			rec:  record.New(record.F("code", "TOOLONG")),
			op:   OpUpdate,
		},
		{
			name: "delete is not validated",
			rec:  record.New(),
			op:   OpDelete,
		},
		{
			name: "null optional values skipped",
			rec:  record.New(record.F("name", "Ann"), record.F("age", nil)),
			op:   OpInsert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set ErrorSet
			rs.Apply(&set, tt.rec, tt.op)
			got := set.Messages()
			if strings.Join(got, "|") != strings.Join(tt.expected, "|") {
				t.Errorf("Messages:\nwant %q\ngot  %q", tt.expected, got)
			}
		})
	}
}
